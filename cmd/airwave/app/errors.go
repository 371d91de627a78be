package app

import (
	"errors"
)

var (
	errNotFound   = errors.New("not found")
	errNotStarted = errors.New("not started")
	errBadNowMS   = errors.New("bad nowMS query")
)
