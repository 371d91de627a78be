// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airwave-tv/airwave/pkg/bundle"

	_ "net/http/pprof"
)

type Server struct {
	Router    *chi.Mux
	Cfg       *ServerConfig
	store     *bundle.Store
	pool      *channelPool
	scheduler *scheduler
	watcher   *definitionsWatcher
	guide     *guideCache
	loc       *time.Location
	bgCtx     context.Context
}

func (s *Server) healthzHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, true, http.StatusOK)
}

// jsonResponse marshals message and give response with code
//
// Don't add any more content after this since Content-Length is set
func (s *Server) jsonResponse(w http.ResponseWriter, message any, code int) {
	raw, err := json.Marshal(message)
	if err != nil {
		http.Error(w, fmt.Sprintf("{message: \"%s\"}", err), http.StatusInternalServerError)
		slog.Error(err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	_, err = w.Write(raw)
	if err != nil {
		slog.Error("could not write HTTP response", "err", err)
	}
}

// channelManifest resolves slug and synthesizes its live playlist at now.
func (s *Server) channelManifest(slug string, now time.Time) (string, error) {
	ch, ok := s.pool.get(slug)
	if !ok {
		return "", fmt.Errorf("channel %s: %w", slug, errNotFound)
	}
	return ch.Manifest(now)
}

// rebuildChannels loads the definitions file and swaps the channel
// pool to match it. On any definitions error the previous pool keeps
// serving. Called at startup and from the definitions watcher.
func (s *Server) rebuildChannels() error {
	defs, err := loadDefinitions(s.Cfg.ChannelList)
	if err != nil {
		return err
	}
	s.scheduler.reset()
	now := time.Now()
	channels := make([]*Channel, 0, len(defs))
	for _, def := range defs {
		ch := newChannel(def)
		ch.recompile(s.store)
		ch.Start(now)
		s.scheduler.enqueueChannel(ch)
		channels = append(channels, ch)
	}
	old := s.pool.replace(channels)
	for _, ch := range old {
		ch.Stop()
	}
	channelsGauge.Set(float64(len(channels)))
	s.guide.invalidate()
	go s.scheduler.run(s.bgCtx)
	return nil
}
