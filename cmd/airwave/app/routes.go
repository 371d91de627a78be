// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/airwave-tv/airwave/pkg/logging"
)

// Routes defines dispatches for all routes.
func (s *Server) Routes(ctx context.Context) error {
	for _, route := range logging.LogRoutes {
		s.Router.MethodFunc(route.Method, route.Path, route.Handler)
	}
	s.Router.Mount("/debug", middleware.Profiler())
	s.Router.MethodFunc("GET", "/healthz", s.healthzHandlerFunc)
	s.Router.MethodFunc("GET", "/config", s.configHandlerFunc)
	s.Router.MethodFunc("GET", "/xmltv.xml", s.xmltvHandlerFunc)
	s.Router.Route("/api", createRouteAPI(s))
	s.Router.MethodFunc("GET", "/{slug}.m3u8", s.liveHandlerFunc)
	s.Router.MethodFunc("HEAD", "/{slug}.m3u8", s.liveHandlerFunc)
	s.Router.MethodFunc("GET", "/channels/{slug}/videos/{fingerprint}/{file}", s.segmentHandlerFunc)
	s.Router.MethodFunc("HEAD", "/channels/{slug}/videos/{fingerprint}/{file}", s.segmentHandlerFunc)
	s.Router.MethodFunc("OPTIONS", "/*", s.optionsHandlerFunc)
	s.Router.MethodFunc("GET", "/", s.indexHandlerFunc)

	return nil
}
