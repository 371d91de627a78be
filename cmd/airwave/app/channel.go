// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/airwave-tv/airwave/pkg/bundle"
)

// videoExtensions is the set of source file extensions enumerated into
// channel programs. Matched case-insensitively.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".avi":  true,
	".m4v":  true,
	".webm": true,
	".ts":   true,
}

// processSeed keeps shuffle order stable for the lifetime of the
// process while differing between restarts.
var processSeed = rand.Int63()

// sourceItem is one video file enumerated from a channel's roots.
type sourceItem struct {
	Path        string
	Fingerprint string
}

// Channel owns one broadcast: the enumerated source queue, the
// compiled segment program, and the runtime epoch.
type Channel struct {
	Def   ChannelDef
	queue []sourceItem

	program atomic.Pointer[compiledProgram]
	epoch   atomic.Pointer[time.Time]
}

// newChannel enumerates the channel's roots and orders the queue
// according to the channel type.
func newChannel(def ChannelDef) *Channel {
	return &Channel{Def: def, queue: buildQueue(def)}
}

// buildQueue walks the root paths in order and keeps supported video
// files. An unusable root leaves the queue shorter, never fails.
func buildQueue(def ChannelDef) []sourceItem {
	var items []sourceItem
	for _, root := range def.Paths {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if videoExtensions[strings.ToLower(filepath.Ext(p))] {
				items = append(items, sourceItem{Path: p, Fingerprint: bundle.Fingerprint(p)})
			}
			return nil
		})
		if err != nil {
			slog.Warn("channel root not usable", "slug", def.Slug, "root", root, "err", err)
		}
	}
	if len(items) == 0 {
		slog.Warn("channel has no playable sources", "slug", def.Slug)
	}
	if def.Type == ChannelTypeShuffle {
		shuffleSources(items, def.Slug)
	}
	return items
}

// shuffleSources applies the deterministic-per-process permutation.
func shuffleSources(items []sourceItem, slug string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(slug))
	r := rand.New(rand.NewSource(processSeed ^ int64(h.Sum64())))
	r.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// recompile rebuilds the compiled program from the channel's complete
// bundles. Readers observe the swap atomically.
func (ch *Channel) recompile(store *bundle.Store) {
	prog := compileProgram(store, ch.Def.Slug, ch.queue)
	ch.program.Store(prog)
	slog.Debug("channel compiled", "slug", ch.Def.Slug, "videos", len(prog.videos),
		"segments", len(prog.records), "totalDurS", prog.totalDurS)
}

// compileProgram opens every complete bundle in queue order and
// flattens the segment lists into one looped timeline. An unreadable
// bundle is excluded from this compile.
func compileProgram(store *bundle.Store, slug string, queue []sourceItem) *compiledProgram {
	prog := &compiledProgram{}
	for _, src := range queue {
		if store.Exists(slug, src.Fingerprint) != bundle.Complete {
			continue
		}
		segs, _, err := store.Open(slug, src.Fingerprint)
		if err != nil {
			slog.Warn("excluding unreadable bundle", "slug", slug, "src", src.Path, "err", err)
			continue
		}
		videoIndex := len(prog.videos)
		video := programVideo{item: src, startS: prog.totalDurS}
		for _, seg := range segs {
			prog.totalDurS += seg.DurationS
			video.durationS += seg.DurationS
			prog.records = append(prog.records, segmentRecord{
				videoIndex: videoIndex,
				durationS:  seg.DurationS,
				url:        fmt.Sprintf("channels/%s/videos/%s/%s", slug, src.Fingerprint, seg.Filename),
				cumS:       prog.totalDurS,
			})
		}
		prog.videos = append(prog.videos, video)
	}
	return prog
}

// Start captures the broadcast epoch once. Later calls are no-ops.
func (ch *Channel) Start(now time.Time) {
	ch.epoch.CompareAndSwap(nil, &now)
}

// Stop clears the epoch so the channel reports not started.
func (ch *Channel) Stop() {
	ch.epoch.Store(nil)
}

// Started reports whether the broadcast epoch has been captured.
func (ch *Channel) Started() bool {
	return ch.epoch.Load() != nil
}

// offsetAt returns seconds since the epoch, clamped at zero for clock
// regression. The second return is false if the channel is not started.
func (ch *Channel) offsetAt(now time.Time) (float64, bool) {
	ep := ch.epoch.Load()
	if ep == nil {
		return 0, false
	}
	off := now.Sub(*ep).Seconds()
	if off < 0 {
		off = 0
	}
	return off, true
}

// Manifest renders the live playlist for the wall-clock instant now.
func (ch *Channel) Manifest(now time.Time) (string, error) {
	offsetS, started := ch.offsetAt(now)
	if !started {
		return "", errNotStarted
	}
	return synthesizePlaylist(ch.program.Load(), offsetS), nil
}

// channelPool is the live set of channels keyed by slug. Reloads swap
// the whole set; readers never observe a partial one.
type channelPool struct {
	mu     sync.RWMutex
	bySlug map[string]*Channel
	order  []*Channel
}

func newChannelPool() *channelPool {
	return &channelPool{bySlug: map[string]*Channel{}}
}

func (p *channelPool) get(slug string) (*Channel, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ch, ok := p.bySlug[slug]
	return ch, ok
}

// list returns the channels in definition order.
func (p *channelPool) list() []*Channel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Channel, len(p.order))
	copy(out, p.order)
	return out
}

// replace swaps in a new channel set and returns the old one.
func (p *channelPool) replace(chs []*Channel) []*Channel {
	bySlug := make(map[string]*Channel, len(chs))
	for _, ch := range chs {
		bySlug[ch.Def.Slug] = ch
	}
	p.mu.Lock()
	old := p.order
	p.bySlug = bySlug
	p.order = chs
	p.mu.Unlock()
	return old
}
