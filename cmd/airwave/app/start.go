// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airwave-tv/airwave/internal"
	"github.com/airwave-tv/airwave/pkg/bundle"
	"github.com/airwave-tv/airwave/pkg/logging"
)

// SetupServer sets up router, middleware, and server, given koanf configuration.
func SetupServer(ctx context.Context, cfg *ServerConfig) (*Server, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	// Fail at startup when the cache is not writable instead of on the
	// first transcode.
	writeCheck := filepath.Join(cfg.CacheDir, ".airwave-write-check")
	if err := os.WriteFile(writeCheck, []byte("ok"), 0o644); err != nil {
		return nil, fmt.Errorf("cache dir not writable: %w", err)
	}
	_ = os.Remove(writeCheck)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.SlogMiddleWare(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(addVersionAndCORSHeaders)
	r.Use(NewPrometheusMiddleware())

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	if cfg.TimeoutS > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.TimeoutS) * time.Second))
	}

	// Add prometheus counters
	r.Mount("/metrics", promhttp.Handler())

	store := bundle.NewStore(cfg.CacheDir)
	tr, err := newTranscoder(store, cfg)
	if err != nil {
		return nil, err
	}
	pool := newChannelPool()

	server := Server{
		Router: r,
		Cfg:    cfg,
		store:  store,
		pool:   pool,
		loc:    loc,
		bgCtx:  ctx,
	}
	server.guide = newGuideCache(pool, store, loc)
	server.scheduler = newScheduler(store, tr, func(slug string) {
		if ch, ok := pool.get(slug); ok {
			ch.recompile(store)
		}
	})
	server.watcher = newDefinitionsWatcher(cfg.ChannelList, server.rebuildChannels)

	if err := server.Routes(ctx); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	start := time.Now()
	if err := server.rebuildChannels(); err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	elapsedSeconds := fmt.Sprintf("%.3fs", time.Since(start).Seconds())

	channels := pool.list()
	sources := 0
	for _, ch := range channels {
		sources += len(ch.queue)
	}
	slog.Info("channels loaded", "count", len(channels), "sources", sources, "elapsed", elapsedSeconds)
	for _, ch := range channels {
		slog.Info("available channel", "slug", ch.Def.Slug, "name", ch.Def.Name,
			"playlist", "/"+ch.Def.Slug+".m3u8")
	}

	go server.watcher.run(ctx)
	go server.guide.run(ctx)

	slog.Info("airwave starting", "version", internal.GetVersion(), "port", cfg.Port)

	return &server, nil
}
