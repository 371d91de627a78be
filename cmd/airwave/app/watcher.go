package app

import (
	"context"
	"log/slog"
	"os"
	"time"
)

const defaultWatchInterval = 5 * time.Minute

// definitionsWatcher polls the channel definitions file for mtime
// changes and reloads when it moves. A kick channel lets the API force
// an immediate reload.
type definitionsWatcher struct {
	path     string
	interval time.Duration
	reload   func() error

	kick chan chan bool

	// mtime is only touched from the run goroutine.
	mtime time.Time
}

func newDefinitionsWatcher(path string, reload func() error) *definitionsWatcher {
	return &definitionsWatcher{
		path:     path,
		interval: defaultWatchInterval,
		reload:   reload,
		kick:     make(chan chan bool),
	}
}

// check reloads when the file's mtime differs from the last seen one
// and reports whether a reload ran and succeeded. The mtime is
// recorded before the reload attempt so a broken file is not retried
// on every poll.
func (w *definitionsWatcher) check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Debug("definitions stat failed", "path", w.path, "err", err)
		return false
	}
	if info.ModTime().Equal(w.mtime) {
		return false
	}
	w.mtime = info.ModTime()
	if err := w.reload(); err != nil {
		slog.Error("definitions reload failed, keeping previous channels",
			"path", w.path, "err", err)
		return false
	}
	slog.Info("channel definitions reloaded", "path", w.path)
	return true
}

// checkForced reloads unconditionally, recording the current mtime.
func (w *definitionsWatcher) checkForced() bool {
	if info, err := os.Stat(w.path); err == nil {
		w.mtime = info.ModTime()
	}
	if err := w.reload(); err != nil {
		slog.Error("definitions reload failed, keeping previous channels",
			"path", w.path, "err", err)
		return false
	}
	slog.Info("channel definitions reloaded", "path", w.path)
	return true
}

// run polls until ctx is done. The startup load has already happened,
// so the baseline mtime is seeded first to avoid an immediate reload.
func (w *definitionsWatcher) run(ctx context.Context) {
	if info, err := os.Stat(w.path); err == nil {
		w.mtime = info.ModTime()
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		case reply := <-w.kick:
			reply <- w.checkForced()
		}
	}
}

// trigger asks the watcher goroutine for an immediate reload and
// reports whether it succeeded.
func (w *definitionsWatcher) trigger(ctx context.Context) bool {
	reply := make(chan bool, 1)
	select {
	case w.kick <- reply:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
