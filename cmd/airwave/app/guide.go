// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/airwave-tv/airwave/pkg/bundle"
)

const (
	guideRefreshInterval = 60 * time.Second
	// Entries shorter than this are eligible for the same-title merge.
	guideMergeMaxDurS = 20 * 60
)

// ScheduleEntry is one programme of a channel's guide day.
type ScheduleEntry struct {
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	DurationS float64   `json:"durationS"`
	IsCurrent bool      `json:"isCurrent"`
}

// show is a maximal run of segments sharing a videoIndex.
type show struct {
	videoIndex int
	startS     float64
	durationS  float64
}

func groupShows(prog *compiledProgram) []show {
	var shows []show
	for _, rec := range prog.records {
		if n := len(shows); n > 0 && shows[n-1].videoIndex == rec.videoIndex {
			shows[n-1].durationS += rec.durationS
			continue
		}
		shows = append(shows, show{
			videoIndex: rec.videoIndex,
			startS:     rec.cumS - rec.durationS,
			durationS:  rec.durationS,
		})
	}
	return shows
}

// titleFor derives the display title for a video: the basename of the
// first configured root that prefixes the original path, else the
// basename of the source's parent directory. The original path comes
// from the channel manifest when present, else the queue.
func titleFor(def ChannelDef, manifest bundle.Manifest, v programVideo) string {
	orig := v.item.Path
	if entry, ok := manifest[v.item.Fingerprint]; ok && entry.OriginalPath != "" {
		orig = entry.OriginalPath
	}
	for _, root := range def.Paths {
		if strings.HasPrefix(orig, root) {
			return filepath.Base(root)
		}
	}
	return filepath.Base(filepath.Dir(orig))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// buildSchedule projects the channel's loop onto the programming day
// around now. Emitted entries overlap [previous3am, next3am) in loc.
func buildSchedule(ch *Channel, manifest bundle.Manifest, now time.Time, loc *time.Location) []ScheduleEntry {
	prog := ch.program.Load()
	offsetS, started := ch.offsetAt(now)
	if !started || prog == nil || len(prog.records) == 0 || prog.totalDurS <= 0 {
		return nil
	}
	T := prog.totalDurS
	phase := offsetS - math.Floor(offsetS/T)*T
	loopStart := now.Add(-secondsToDuration(phase))
	dayStart := previous3am(now, loc)
	dayEnd := next3am(now, loc)

	// Rewind whole loops until the running loop begins at or before
	// the day start, then walk forward across the day.
	loopDur := secondsToDuration(T)
	base := loopStart
	for base.After(dayStart) {
		base = base.Add(-loopDur)
	}

	shows := groupShows(prog)
	titles := make([]string, len(prog.videos))
	for i, v := range prog.videos {
		titles[i] = titleFor(ch.Def, manifest, v)
	}

	var entries []ScheduleEntry
	for ; base.Before(dayEnd); base = base.Add(loopDur) {
		for _, sh := range shows {
			start := base.Add(secondsToDuration(sh.startS))
			end := start.Add(secondsToDuration(sh.durationS))
			if !end.After(dayStart) || !start.Before(dayEnd) {
				continue
			}
			entries = append(entries, ScheduleEntry{
				Title:     titles[sh.videoIndex],
				Start:     start,
				End:       end,
				DurationS: sh.durationS,
				IsCurrent: !start.After(now) && now.Before(end),
			})
		}
	}
	return mergeScheduleEntries(entries)
}

// mergeScheduleEntries collapses each run of consecutive same-title
// entries in which every entry is shorter than 20 minutes into one
// entry spanning the run.
func mergeScheduleEntries(entries []ScheduleEntry) []ScheduleEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]ScheduleEntry, 0, len(entries))
	i := 0
	for i < len(entries) {
		run := entries[i]
		mergeable := run.DurationS < guideMergeMaxDurS
		j := i + 1
		for mergeable && j < len(entries) &&
			entries[j].Title == run.Title && entries[j].DurationS < guideMergeMaxDurS {
			run.End = entries[j].End
			run.IsCurrent = run.IsCurrent || entries[j].IsCurrent
			j++
		}
		run.DurationS = run.End.Sub(run.Start).Seconds()
		out = append(out, run)
		i = j
	}
	return out
}

// guideCache holds precomputed schedules for all channels, refreshed
// on a timer. Requests read the cache; a cold miss computes once.
type guideCache struct {
	pool  *channelPool
	store *bundle.Store
	loc   *time.Location

	mu      sync.RWMutex
	entries map[string][]ScheduleEntry
}

func newGuideCache(pool *channelPool, store *bundle.Store, loc *time.Location) *guideCache {
	return &guideCache{pool: pool, store: store, loc: loc, entries: map[string][]ScheduleEntry{}}
}

// run refreshes all channel guides once a minute until ctx is done.
func (g *guideCache) run(ctx context.Context) {
	ticker := time.NewTicker(guideRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.refresh(time.Now())
		}
	}
}

// refresh recomputes every channel's schedule at now.
func (g *guideCache) refresh(now time.Time) {
	fresh := map[string][]ScheduleEntry{}
	for _, ch := range g.pool.list() {
		fresh[ch.Def.Slug] = g.build(ch, now)
	}
	g.mu.Lock()
	g.entries = fresh
	g.mu.Unlock()
}

// build computes one channel's schedule without touching the cache.
func (g *guideCache) build(ch *Channel, now time.Time) []ScheduleEntry {
	manifest, err := g.store.ReadManifest(ch.Def.Slug)
	if err != nil {
		slog.Warn("guide: manifest unreadable", "slug", ch.Def.Slug, "err", err)
		manifest = bundle.Manifest{}
	}
	return buildSchedule(ch, manifest, now, g.loc)
}

// get returns the cached schedule for slug, computing it only on a
// cold-start miss.
func (g *guideCache) get(slug string, now time.Time) []ScheduleEntry {
	g.mu.RLock()
	entries, ok := g.entries[slug]
	g.mu.RUnlock()
	if ok {
		return entries
	}
	ch, found := g.pool.get(slug)
	if !found {
		return nil
	}
	entries = g.build(ch, now)
	g.mu.Lock()
	g.entries[slug] = entries
	g.mu.Unlock()
	return entries
}

// invalidate drops all cached schedules after a definitions reload.
func (g *guideCache) invalidate() {
	g.mu.Lock()
	g.entries = map[string][]ScheduleEntry{}
	g.mu.Unlock()
}
