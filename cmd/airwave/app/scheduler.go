package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/airwave-tv/airwave/pkg/bundle"
)

// queueItem is one pending transcode for a channel.
type queueItem struct {
	slug string
	src  sourceItem
}

// generationProgress is what the generation API reports.
type generationProgress struct {
	CurrentIndex    int     `json:"currentIndex"`
	TotalVideos     int     `json:"totalVideos"`
	IsGenerating    bool    `json:"isGenerating"`
	PercentComplete float64 `json:"percentComplete"`
}

// scheduler owns the transcode queue. Channels enqueue their sources
// that have no complete bundle yet; a single worker drains the queue
// round-robin across channels so no channel monopolizes the encoder.
type scheduler struct {
	store            *bundle.Store
	tr               *transcoder
	onBundleComplete func(slug string)

	running atomic.Bool

	mu       sync.Mutex
	queues   map[string][]queueItem
	order    []string
	progress generationProgress
}

func newScheduler(store *bundle.Store, tr *transcoder, onBundleComplete func(slug string)) *scheduler {
	return &scheduler{
		store:            store,
		tr:               tr,
		onBundleComplete: onBundleComplete,
		queues:           map[string][]queueItem{},
	}
}

// enqueueChannel queues every source of ch without a complete bundle.
func (s *scheduler) enqueueChannel(ch *Channel) {
	var pending []queueItem
	for _, src := range ch.queue {
		if s.store.Exists(ch.Def.Slug, src.Fingerprint) == bundle.Complete {
			continue
		}
		pending = append(pending, queueItem{slug: ch.Def.Slug, src: src})
	}
	if len(pending) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[ch.Def.Slug]; !ok {
		s.order = append(s.order, ch.Def.Slug)
	}
	s.queues[ch.Def.Slug] = append(s.queues[ch.Def.Slug], pending...)
}

// reset drops all queued work after a definitions reload.
func (s *scheduler) reset() {
	s.mu.Lock()
	s.queues = map[string][]queueItem{}
	s.order = nil
	s.mu.Unlock()
}

// buildFlat drains the per-channel queues into one round-robin list:
// first pending item of each channel, then the second of each, and so
// on.
func (s *scheduler) buildFlat() []queueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flat []queueItem
	for {
		advanced := false
		for _, slug := range s.order {
			q := s.queues[slug]
			if len(q) == 0 {
				continue
			}
			flat = append(flat, q[0])
			s.queues[slug] = q[1:]
			advanced = true
		}
		if !advanced {
			break
		}
	}
	s.queues = map[string][]queueItem{}
	s.order = nil
	return flat
}

// run drains the queue until empty. At most one drain is active at a
// time; later calls return immediately while one is in flight. Failed
// transcodes are logged and skipped.
func (s *scheduler) run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)
	defer generationQueueLength.Set(0)

	for {
		flat := s.buildFlat()
		if len(flat) == 0 {
			break
		}
		total := len(flat)
		for i, item := range flat {
			if ctx.Err() != nil {
				s.finishProgress()
				return
			}
			s.setProgress(generationProgress{
				CurrentIndex:    i,
				TotalVideos:     total,
				IsGenerating:    true,
				PercentComplete: float64(i) / float64(total) * 100,
			})
			generationQueueLength.Set(float64(total - i))
			if err := s.tr.transcode(ctx, item.slug, item.src); err != nil {
				slog.Error("transcode failed", "slug", item.slug, "path", item.src.Path, "err", err)
				continue
			}
			if s.onBundleComplete != nil {
				s.onBundleComplete(item.slug)
			}
		}
	}
	s.finishProgress()
}

func (s *scheduler) setProgress(p generationProgress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// finishProgress marks the drain complete, keeping the last totals.
func (s *scheduler) finishProgress() {
	s.mu.Lock()
	s.progress.IsGenerating = false
	if s.progress.TotalVideos > 0 {
		s.progress.CurrentIndex = s.progress.TotalVideos
		s.progress.PercentComplete = 100
	}
	s.mu.Unlock()
}

// progressSnapshot returns the current generation progress.
func (s *scheduler) progressSnapshot() generationProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}
