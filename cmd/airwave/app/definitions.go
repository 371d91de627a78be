// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// ChannelType determines how a channel orders its sources.
type ChannelType string

const (
	ChannelTypeSequential ChannelType = "sequential"
	ChannelTypeShuffle    ChannelType = "shuffle"
)

// ChannelDef is one entry of the channel-definitions file.
type ChannelDef struct {
	Type  ChannelType `json:"type"`
	Name  string      `json:"name"`
	Slug  string      `json:"slug"`
	Paths []string    `json:"paths"`
}

const defaultDefinitions = `[
  {
    "type": "shuffle",
    "name": "Example Channel",
    "slug": "example",
    "paths": ["/media"]
  }
]
`

// loadDefinitions reads and validates the channel-definitions file.
// A missing file is materialized with a single default channel. A
// failed write of the default is logged and the in-memory default is
// used anyway.
func loadDefinitions(path string) ([]ChannelDef, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("channel definitions missing, writing default", "path", path)
		if werr := os.WriteFile(path, []byte(defaultDefinitions), 0o644); werr != nil {
			slog.Warn("could not write default channel definitions", "path", path, "err", werr)
		}
		data = []byte(defaultDefinitions)
	case err != nil:
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	defs, err := parseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return defs, nil
}

// parseDefinitions decodes the JSON array and rejects malformed
// channels loudly rather than skipping them.
func parseDefinitions(data []byte) ([]ChannelDef, error) {
	var defs []ChannelDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		switch d.Type {
		case ChannelTypeSequential, ChannelTypeShuffle:
		default:
			return nil, fmt.Errorf("channel %d: unknown type %q", i, d.Type)
		}
		if d.Slug == "" || strings.ContainsAny(d.Slug, "/ .") {
			return nil, fmt.Errorf("channel %d: slug %q is not URL-safe", i, d.Slug)
		}
		if seen[d.Slug] {
			return nil, fmt.Errorf("channel %d: duplicate slug %q", i, d.Slug)
		}
		seen[d.Slug] = true
		if len(d.Paths) == 0 {
			return nil, fmt.Errorf("channel %q: no root paths", d.Slug)
		}
	}
	return defs, nil
}
