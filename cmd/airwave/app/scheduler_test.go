package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwave-tv/airwave/pkg/bundle"
)

func testChannel(slug string, paths ...string) *Channel {
	ch := &Channel{Def: ChannelDef{Slug: slug, Name: slug}}
	for _, p := range paths {
		ch.queue = append(ch.queue, sourceItem{Path: p, Fingerprint: bundle.Fingerprint(p)})
	}
	return ch
}

func TestEnqueueSkipsCompleteBundles(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	s := newScheduler(store, nil, nil)

	ch := testChannel("alpha", "/media/done.mp4", "/media/todo.mp4")
	writeCompleteBundle(t, store, "alpha", ch.queue[0].Fingerprint, []float64{6})

	s.enqueueChannel(ch)
	flat := s.buildFlat()
	require.Len(t, flat, 1)
	assert.Equal(t, "/media/todo.mp4", flat[0].src.Path)
	assert.Equal(t, "alpha", flat[0].slug)
}

func TestBuildFlatRoundRobin(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	s := newScheduler(store, nil, nil)

	s.enqueueChannel(testChannel("alpha", "/m/a1.mp4", "/m/a2.mp4", "/m/a3.mp4"))
	s.enqueueChannel(testChannel("beta", "/m/b1.mp4"))

	flat := s.buildFlat()
	require.Len(t, flat, 4)
	var got []string
	for _, item := range flat {
		got = append(got, item.src.Path)
	}
	assert.Equal(t, []string{"/m/a1.mp4", "/m/b1.mp4", "/m/a2.mp4", "/m/a3.mp4"}, got)

	assert.Empty(t, s.buildFlat(), "buildFlat drains the queues")
}

func TestSchedulerReset(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	s := newScheduler(store, nil, nil)
	s.enqueueChannel(testChannel("alpha", "/m/a1.mp4"))
	s.reset()
	assert.Empty(t, s.buildFlat())
}

func TestSchedulerRunDrains(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, fakeEncoder)

	var completed []string
	s := newScheduler(store, tr, func(slug string) { completed = append(completed, slug) })

	chA := testChannel("alpha", "/m/a1.mp4")
	chB := testChannel("beta", "/m/b1.mp4")
	s.enqueueChannel(chA)
	s.enqueueChannel(chB)

	s.run(context.Background())

	assert.Equal(t, []string{"alpha", "beta"}, completed)
	assert.Equal(t, bundle.Complete, store.Exists("alpha", chA.queue[0].Fingerprint))
	assert.Equal(t, bundle.Complete, store.Exists("beta", chB.queue[0].Fingerprint))

	p := s.progressSnapshot()
	assert.False(t, p.IsGenerating)
	assert.Equal(t, 2, p.CurrentIndex)
	assert.Equal(t, 2, p.TotalVideos)
	assert.Equal(t, 100.0, p.PercentComplete)
}

func TestSchedulerRunSkipsFailures(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, "#!/bin/sh\nexit 1\n")

	calls := 0
	s := newScheduler(store, tr, func(string) { calls++ })

	ch := testChannel("alpha", "/m/a1.mp4")
	s.enqueueChannel(ch)
	s.run(context.Background())

	assert.Zero(t, calls, "failed transcodes never report completion")
	assert.Equal(t, bundle.Absent, store.Exists("alpha", ch.queue[0].Fingerprint))
	assert.False(t, s.progressSnapshot().IsGenerating)
}

func TestSchedulerRunSingleFlight(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	s := newScheduler(store, nil, nil)
	s.enqueueChannel(testChannel("alpha", "/m/a1.mp4"))

	s.running.Store(true)
	s.run(context.Background())
	s.running.Store(false)

	assert.Len(t, s.buildFlat(), 1, "a second run returns without touching the queue")
}

func TestSchedulerRunHonorsContext(t *testing.T) {
	store := bundle.NewStore(t.TempDir())
	tr := newTestTranscoder(t, store, fakeEncoder)
	s := newScheduler(store, tr, nil)

	ch := testChannel("alpha", "/m/a1.mp4")
	s.enqueueChannel(ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.run(ctx)

	assert.Equal(t, bundle.Absent, store.Exists("alpha", ch.queue[0].Fingerprint))
	assert.False(t, s.progressSnapshot().IsGenerating)
}
