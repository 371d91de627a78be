package app_test

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLTVGuide(t *testing.T) {
	fx := newTestServer(t)

	nowMS := strconv.FormatInt(time.Now().UnixMilli(), 10)
	resp, body := testRequest(t, fx.ts, "GET", "/xmltv.xml?nowMS="+nowMS, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(body))
	tv := doc.SelectElement("tv")
	require.NotNil(t, tv)
	assert.Equal(t, "airwave", tv.SelectAttrValue("generator-info-name", ""))

	channels := tv.SelectElements("channel")
	require.Len(t, channels, 2)
	assert.Equal(t, "test", channels[0].SelectAttrValue("id", ""))
	assert.Equal(t, "Cartoons", channels[0].SelectElement("display-name").Text())
	assert.Equal(t, "static", channels[1].SelectAttrValue("id", ""))

	// Only the channel with sources has programmes, and their times are
	// on XMLTV form.
	programmes := tv.SelectElements("programme")
	require.NotEmpty(t, programmes)
	for _, p := range programmes {
		assert.Equal(t, "test", p.SelectAttrValue("channel", ""))
	}
	first := programmes[0]
	assert.Equal(t, "cartoons", first.SelectElement("title").Text())
	start, err := time.Parse("20060102150405 -0700", first.SelectAttrValue("start", ""))
	require.NoError(t, err)
	stop, err := time.Parse("20060102150405 -0700", first.SelectAttrValue("stop", ""))
	require.NoError(t, err)
	assert.True(t, stop.After(start))
}

func TestXMLTVBadNowMS(t *testing.T) {
	fx := newTestServer(t)
	resp, _ := testRequest(t, fx.ts, "GET", "/xmltv.xml?nowMS=oops", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
