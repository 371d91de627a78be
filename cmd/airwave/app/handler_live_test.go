// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveRequest invokes the live playlist handler directly with the slug
// routed as chi would.
func liveRequest(s *Server, slug, query string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("GET", "/"+slug+".m3u8"+query, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", slug)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	s.liveHandlerFunc(w, r)
	return w
}

func TestLiveHandlerNotStarted(t *testing.T) {
	s := &Server{pool: newChannelPool()}
	ch := newChannel(ChannelDef{Type: ChannelTypeSequential, Slug: "stopped", Paths: []string{"/nonexistent"}})
	s.pool.replace([]*Channel{ch})

	w := liveRequest(s, "stopped", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "channel not started")
}

func TestLiveHandlerUnknownChannel(t *testing.T) {
	s := &Server{pool: newChannelPool()}
	w := liveRequest(s, "nobody", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown channel")
}

func TestLiveHandlerBadNowMS(t *testing.T) {
	s := &Server{pool: newChannelPool()}
	w := liveRequest(s, "any", "?nowMS=x")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
