// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airwave-tv/airwave/pkg/logging"
)

// liveHandlerFunc serves the sliding live playlist of one channel. The
// wall clock, or its nowMS override, decides which loop and which
// segment window the playlist shows.
func (s *Server) liveHandlerFunc(w http.ResponseWriter, r *http.Request) {
	log := logging.SubLoggerWithRequestID(slog.Default(), r)
	slug := chi.URLParam(r, "slug")
	nowMS, _, err := requestNowMS(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	manifest, err := s.channelManifest(slug, time.UnixMilli(int64(nowMS)))
	if err != nil {
		switch {
		case errors.Is(err, errNotFound):
			http.Error(w, "unknown channel", http.StatusNotFound)
		case errors.Is(err, errNotStarted):
			log.Debug("playlist unavailable", "slug", slug, "err", err)
			http.Error(w, "channel not started", http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(manifest)); err != nil {
		log.Error("could not write playlist", "slug", slug, "err", err)
	}
}
