package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/beevik/etree"

	"github.com/airwave-tv/airwave/pkg/logging"
)

const xmltvTimeLayout = "20060102150405 -0700"

// xmltvHandlerFunc serves the cross-channel guide as an XMLTV document
// covering the current programming day.
func (s *Server) xmltvHandlerFunc(w http.ResponseWriter, r *http.Request) {
	log := logging.SubLoggerWithRequestID(slog.Default(), r)
	nowMS, overridden, err := requestNowMS(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	now := time.UnixMilli(int64(nowMS))

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	tv := doc.CreateElement("tv")
	tv.CreateAttr("generator-info-name", "airwave")

	channels := s.pool.list()
	for _, ch := range channels {
		e := tv.CreateElement("channel")
		e.CreateAttr("id", ch.Def.Slug)
		e.CreateElement("display-name").SetText(ch.Def.Name)
	}
	for _, ch := range channels {
		for _, entry := range s.guideEntries(ch, now, overridden) {
			p := tv.CreateElement("programme")
			p.CreateAttr("start", entry.Start.In(s.loc).Format(xmltvTimeLayout))
			p.CreateAttr("stop", entry.End.In(s.loc).Format(xmltvTimeLayout))
			p.CreateAttr("channel", ch.Def.Slug)
			p.CreateElement("title").SetText(entry.Title)
		}
	}

	doc.Indent(2)
	body, err := doc.WriteToBytes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	if _, err := w.Write(body); err != nil {
		log.Error("could not write guide", "err", err)
	}
}

// guideEntries returns the schedule for one channel. A nowMS override
// bypasses the cache so overridden requests see a deterministic guide.
func (s *Server) guideEntries(ch *Channel, now time.Time, overridden bool) []ScheduleEntry {
	if overridden {
		return s.guide.build(ch, now)
	}
	return s.guide.get(ch.Def.Slug, now)
}
