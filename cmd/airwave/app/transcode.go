// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/airwave-tv/airwave/pkg/bundle"
	"github.com/airwave-tv/airwave/pkg/ffmpeg"
	"github.com/airwave-tv/airwave/pkg/probe"
)

// transcoder turns one source video into a complete HLS bundle.
type transcoder struct {
	store  *bundle.Store
	runner *ffmpeg.Runner
	prober *probe.Prober
	cfg    *ServerConfig
	width  int
	height int
}

func newTranscoder(store *bundle.Store, cfg *ServerConfig) (*transcoder, error) {
	w, h, err := parseDimensions(cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	return &transcoder{
		store:  store,
		runner: ffmpeg.New(cfg.FFmpeg),
		prober: probe.New(cfg.FFprobe),
		cfg:    cfg,
		width:  w,
		height: h,
	}, nil
}

// parseDimensions splits a "WxH" string into integer dimensions.
func parseDimensions(s string) (int, int, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("dimensions %q not on WxH form", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("bad width in dimensions %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("bad height in dimensions %q", s)
	}
	return width, height, nil
}

// args assembles the ffmpeg invocation writing segments and index
// playlist into dir.
func (t *transcoder) args(src, dir string) []string {
	vf := fmt.Sprintf("scale=%d:%d", t.width, t.height)
	if t.cfg.VideoFilter != "" {
		vf += "," + t.cfg.VideoFilter
	}
	return []string{
		"-i", src,
		"-c:v", t.cfg.VideoCodec,
		"-preset", t.cfg.VideoPreset,
		"-crf", strconv.Itoa(t.cfg.VideoQuality),
		"-vf", vf,
		"-c:a", t.cfg.AudioCodec,
		"-b:a", t.cfg.AudioBitrate,
		"-f", "hls",
		"-hls_time", strconv.Itoa(t.cfg.SegmentLengthS),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(dir, "segment_%05d.ts"),
		filepath.Join(dir, bundle.IndexName),
	}
}

// transcode produces the bundle for src under slug's channel directory.
// Partial leftovers from an earlier run are reaped before encoding
// starts, and a failed run never leaves a partial bundle behind.
func (t *transcoder) transcode(ctx context.Context, slug string, src sourceItem) error {
	fp := src.Fingerprint
	if t.store.Exists(slug, fp) == bundle.Partial {
		if err := t.store.Reap(slug, fp); err != nil {
			return fmt.Errorf("reap partial bundle: %w", err)
		}
	}

	if res, err := t.prober.Probe(ctx, src.Path); err != nil {
		slog.Debug("probe failed", "path", src.Path, "err", err)
	} else if res.Known {
		slog.Info("transcoding", "path", src.Path, "durationS", res.DurationS,
			"width", res.Width, "height", res.Height, "codec", res.Codec)
	}

	dir, err := t.store.Create(slug, fp)
	if err != nil {
		return err
	}

	start := time.Now()
	err = t.runner.Run(ctx, t.args(src.Path, dir)...)
	elapsed := time.Since(start)
	if err != nil {
		transcodesTotal.WithLabelValues("failure").Inc()
		t.reapQuietly(slug, fp)
		return fmt.Errorf("ffmpeg: %w", err)
	}

	md := bundle.Metadata{
		OriginalPath: src.Path,
		VideoHash:    fp,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Duration:     elapsed.Seconds(),
	}
	if err := t.store.WriteMetadata(slug, fp, md); err != nil {
		transcodesTotal.WithLabelValues("failure").Inc()
		t.reapQuietly(slug, fp)
		return err
	}

	// The completeness check doubles as output validation. An encode
	// that exited zero but produced no finalized index is discarded.
	if state := t.store.Exists(slug, fp); state != bundle.Complete {
		transcodesTotal.WithLabelValues("failure").Inc()
		t.reapQuietly(slug, fp)
		return fmt.Errorf("bundle for %s is %s after transcode", src.Path, state)
	}

	entry := bundle.ManifestEntry{
		OriginalPath: src.Path,
		Filename:     filepath.Base(src.Path),
		AddedAt:      time.Now().UnixMilli(),
	}
	if err := t.store.AddManifestEntry(slug, fp, entry); err != nil {
		slog.Warn("manifest update failed", "slug", slug, "err", err)
	}

	transcodesTotal.WithLabelValues("success").Inc()
	transcodeDurationS.Observe(elapsed.Seconds())
	slog.Info("transcode complete", "slug", slug, "path", src.Path,
		"elapsed", elapsed.Round(time.Second))
	return nil
}

func (t *transcoder) reapQuietly(slug, fp string) {
	if err := t.store.Reap(slug, fp); err != nil {
		slog.Warn("reap after failed transcode", "slug", slug, "fingerprint", fp, "err", err)
	}
}
