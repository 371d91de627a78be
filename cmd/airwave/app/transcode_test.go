// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwave-tv/airwave/pkg/bundle"
)

// fakeEncoder is a stand-in ffmpeg that writes one sealed segment plus
// index playlist into the output directory given as the last argument.
const fakeEncoder = `#!/bin/sh
for last; do :; done
dir=$(dirname "$last")
printf '#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:7\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-PLAYLIST-TYPE:VOD\n#EXTINF:6.000000,\nsegment_00000.ts\n#EXT-X-ENDLIST\n' > "$last"
printf x > "$dir/segment_00000.ts"
`

func writeFakeBin(t *testing.T, name, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func newTestTranscoder(t *testing.T, store *bundle.Store, encoderScript string) *transcoder {
	t.Helper()
	cfg := DefaultConfig
	cfg.FFmpeg = writeFakeBin(t, "ffmpeg", encoderScript)
	cfg.FFprobe = "/nonexistent/ffprobe"
	tr, err := newTranscoder(store, &cfg)
	require.NoError(t, err)
	return tr
}

func TestParseDimensions(t *testing.T) {
	cases := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{in: "1280x720", w: 1280, h: 720},
		{in: "640x480", w: 640, h: 480},
		{in: "1280", wantErr: true},
		{in: "axb", wantErr: true},
		{in: "0x720", wantErr: true},
		{in: "1280x-1", wantErr: true},
	}
	for _, tc := range cases {
		w, h, err := parseDimensions(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.w, w)
		assert.Equal(t, tc.h, h)
	}
}

func TestTranscoderArgs(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	cfg := DefaultConfig
	cfg.VideoFilter = "hflip"
	tr, err := newTranscoder(store, &cfg)
	require.NoError(t, err)

	args := tr.args("/media/a.mp4", "/cache/channels/x/videos/fp")
	want := []string{
		"-i", "/media/a.mp4",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-vf", "scale=1280:720,hflip",
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "hls",
		"-hls_time", "6",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", "/cache/channels/x/videos/fp/segment_%05d.ts",
		"/cache/channels/x/videos/fp/index.m3u8",
	}
	assert.Equal(t, want, args)

	cfg.VideoFilter = ""
	tr, err = newTranscoder(store, &cfg)
	require.NoError(t, err)
	args = tr.args("/media/a.mp4", "/out")
	assert.Contains(t, args, "scale=1280:720")
}

func TestTranscodeSuccess(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, fakeEncoder)
	src := sourceItem{Path: "/media/alpha.mp4", Fingerprint: bundle.Fingerprint("/media/alpha.mp4")}

	require.NoError(t, tr.transcode(context.Background(), "test", src))
	require.Equal(t, bundle.Complete, store.Exists("test", src.Fingerprint))

	_, md, err := store.Open("test", src.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, src.Path, md.OriginalPath)
	assert.Equal(t, src.Fingerprint, md.VideoHash)
	assert.GreaterOrEqual(t, md.Duration, 0.0)
	assert.NotEmpty(t, md.GeneratedAt)

	m, err := store.ReadManifest("test")
	require.NoError(t, err)
	entry, ok := m[src.Fingerprint]
	require.True(t, ok)
	assert.Equal(t, src.Path, entry.OriginalPath)
	assert.Equal(t, "alpha.mp4", entry.Filename)
	assert.Greater(t, entry.AddedAt, int64(0))
}

func TestTranscodeFailureReaps(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, "#!/bin/sh\necho broken pipe >&2\nexit 3\n")
	src := sourceItem{Path: "/media/bad.mp4", Fingerprint: bundle.Fingerprint("/media/bad.mp4")}

	err := tr.transcode(context.Background(), "test", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, bundle.Absent, store.Exists("test", src.Fingerprint))
}

func TestTranscodeRejectsEmptyOutput(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, "#!/bin/sh\nexit 0\n")
	src := sourceItem{Path: "/media/empty.mp4", Fingerprint: bundle.Fingerprint("/media/empty.mp4")}

	err := tr.transcode(context.Background(), "test", src)
	require.Error(t, err)
	assert.Equal(t, bundle.Absent, store.Exists("test", src.Fingerprint))
}

func TestTranscodeReapsPartialFirst(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, fakeEncoder)
	src := sourceItem{Path: "/media/retry.mp4", Fingerprint: bundle.Fingerprint("/media/retry.mp4")}

	// Simulate a crashed earlier run that left a partial bundle.
	dir, err := store.Create("test", src.Fingerprint)
	require.NoError(t, err)
	leftover := filepath.Join(dir, "leftover.ts")
	require.NoError(t, os.WriteFile(leftover, []byte("junk"), 0o644))
	require.Equal(t, bundle.Partial, store.Exists("test", src.Fingerprint))

	require.NoError(t, tr.transcode(context.Background(), "test", src))
	require.Equal(t, bundle.Complete, store.Exists("test", src.Fingerprint))
	_, statErr := os.Stat(leftover)
	assert.True(t, os.IsNotExist(statErr), "partial leftovers are reaped before encoding")
}
