// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultBuckets = []float64{5, 10, 20, 50, 100, 200, 500, 1000}
	prometheusMW   prometheusMiddleware
)

const (
	playlistReqsName      = "playlist_requests_total"
	playlistLatencyName   = "playlist_request_duration_milliseconds"
	segReqsName           = "segment_requests_total"
	segLatencyName        = "segment_request_duration_milliseconds"
	transcodesName        = "airwave_transcodes_total"
	transcodeDurationName = "airwave_transcode_duration_seconds"
	generationQueueName   = "airwave_generation_queue_length"
	channelsName          = "airwave_channels"
	service               = "airwave"
)

// prometheusMiddleware provides a handler that exposes prometheus metrics for various requests
type prometheusMiddleware struct {
	playlistReqs    *prometheus.CounterVec
	playlistLatency *prometheus.HistogramVec
	segReqs         *prometheus.CounterVec
	segLatency      *prometheus.HistogramVec
}

var (
	transcodesTotal       *prometheus.CounterVec
	transcodeDurationS    prometheus.Histogram
	generationQueueLength prometheus.Gauge
	channelsGauge         prometheus.Gauge
)

func init() {
	prometheusMW.playlistReqs = newCounter(playlistReqsName,
		"Number of live playlist requests processed, partitioned by status code.", service)
	prometheusMW.playlistLatency = newHistogram(playlistLatencyName,
		"Live playlist response latency.", service, defaultBuckets)
	prometheusMW.segReqs = newCounter(segReqsName,
		"Number segment requests processed, partitioned by status code.", service)
	prometheusMW.segLatency = newHistogram(segLatencyName,
		"Segment response latency.", service, defaultBuckets)

	transcodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        transcodesName,
		Help:        "Number of finished transcodes, partitioned by result.",
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"result"})
	prometheus.MustRegister(transcodesTotal)

	transcodeDurationS = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        transcodeDurationName,
		Help:        "Wall-time of successful transcodes in seconds.",
		ConstLabels: prometheus.Labels{"service": service},
		Buckets:     []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
	})
	prometheus.MustRegister(transcodeDurationS)

	generationQueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        generationQueueName,
		Help:        "Transcodes still pending in the current queue drain.",
		ConstLabels: prometheus.Labels{"service": service},
	})
	prometheus.MustRegister(generationQueueLength)

	channelsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        channelsName,
		Help:        "Channels currently configured.",
		ConstLabels: prometheus.Labels{"service": service},
	})
	prometheus.MustRegister(channelsGauge)
}

// NewPrometheusMiddleware returns a new prometheus Middleware handler.
func NewPrometheusMiddleware() func(next http.Handler) http.Handler {
	return prometheusMW.handler
}

func (mw prometheusMiddleware) handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := strconv.Itoa(ww.Status())
		latencyMS := float64(time.Since(start).Nanoseconds()) * 1e-6
		extIdx := strings.LastIndex(path, ".")
		if extIdx < 0 {
			return
		}

		switch ext := path[extIdx:]; ext {
		case ".m3u8":
			mw.playlistReqs.WithLabelValues(status).Inc()
			mw.playlistLatency.WithLabelValues(status).Observe(latencyMS)
		case ".ts":
			mw.segReqs.WithLabelValues(status).Inc()
			mw.segLatency.WithLabelValues(status).Observe(latencyMS)
		}
	}
	return http.HandlerFunc(fn)
}

func newCounter(counterName, help, serviceName string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        counterName,
			Help:        help,
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"code"},
	)
	prometheus.MustRegister(cv)
	return cv
}

func newHistogram(histogramName, help, serviceName string, buckets []float64) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        histogramName,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": serviceName},
		Buckets:     buckets,
	},
		[]string{"code"},
	)
	prometheus.MustRegister(h)
	return h
}
