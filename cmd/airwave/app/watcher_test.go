package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
	return path
}

func bumpMtime(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	next := info.ModTime().Add(time.Second)
	require.NoError(t, os.Chtimes(path, next, next))
}

func TestWatcherCheckDetectsChange(t *testing.T) {
	path := writeDefsFile(t)
	reloads := 0
	w := newDefinitionsWatcher(path, func() error { reloads++; return nil })

	assert.True(t, w.check(), "unseen mtime triggers a reload")
	assert.Equal(t, 1, reloads)

	assert.False(t, w.check(), "unchanged mtime is a no-op")
	assert.Equal(t, 1, reloads)

	bumpMtime(t, path)
	assert.True(t, w.check())
	assert.Equal(t, 2, reloads)
}

func TestWatcherCheckMissingFile(t *testing.T) {
	reloads := 0
	w := newDefinitionsWatcher(filepath.Join(t.TempDir(), "absent.json"),
		func() error { reloads++; return nil })
	assert.False(t, w.check())
	assert.Zero(t, reloads)
}

func TestWatcherBrokenReloadNotRetried(t *testing.T) {
	path := writeDefsFile(t)
	reloads := 0
	w := newDefinitionsWatcher(path, func() error { reloads++; return errors.New("bad json") })

	assert.False(t, w.check())
	assert.Equal(t, 1, reloads)

	// The mtime was recorded before the failed attempt, so the same
	// broken file is not reparsed on the next poll.
	assert.False(t, w.check())
	assert.Equal(t, 1, reloads)

	bumpMtime(t, path)
	assert.False(t, w.check())
	assert.Equal(t, 2, reloads)
}

func TestWatcherCheckForced(t *testing.T) {
	path := writeDefsFile(t)
	reloads := 0
	w := newDefinitionsWatcher(path, func() error { reloads++; return nil })

	assert.True(t, w.checkForced())
	assert.True(t, w.checkForced(), "forced reloads ignore the mtime")
	assert.Equal(t, 2, reloads)

	assert.False(t, w.check(), "forced reload recorded the mtime")
	assert.Equal(t, 2, reloads)
}

func TestWatcherTrigger(t *testing.T) {
	path := writeDefsFile(t)
	reloads := 0
	w := newDefinitionsWatcher(path, func() error { reloads++; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()

	assert.True(t, w.trigger(ctx))
	assert.Equal(t, 1, reloads)

	cancel()
	<-done
	assert.False(t, w.trigger(ctx), "trigger fails once the watcher is gone")
	assert.Equal(t, 1, reloads)
}
