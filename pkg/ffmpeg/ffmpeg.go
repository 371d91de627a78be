// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package ffmpeg runs an external ffmpeg binary as a one-shot child
// process and captures the tail of its stderr output for diagnostics.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
)

// stderrTailBytes bounds how much stderr output is retained.
// ffmpeg is chatty, and only the last lines explain a failure.
const stderrTailBytes = 500

// RunError reports a process that exited with a nonzero status.
type RunError struct {
	Bin  string
	Code int
	Tail string
}

func (e *RunError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("%s exited with code %d", e.Bin, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Bin, e.Code, e.Tail)
}

// Runner spawns one ffmpeg process per Run call. The zero value runs
// "ffmpeg" from PATH.
type Runner struct {
	Bin string
}

// New returns a Runner using the given binary path.
func New(bin string) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{Bin: bin}
}

// Run starts the binary with args and blocks until it exits.
// Cancelling ctx kills the process. On a nonzero exit, the returned
// error is a *RunError carrying the exit code and the stderr tail.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	bin := r.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", bin, err)
	}

	tail := newTailBuffer(stderrTailBytes)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(tail, stderr)
	}()

	// Drain stderr to EOF before reaping the process.
	wg.Wait()
	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &RunError{Bin: filepath.Base(bin), Code: code, Tail: tail.String()}
}
