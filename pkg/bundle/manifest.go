// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const manifestName = "manifest.json"

// ManifestEntry maps a fingerprint back to the source it was made from.
type ManifestEntry struct {
	OriginalPath string `json:"originalPath"`
	Filename     string `json:"filename"`
	AddedAt      int64  `json:"addedAt"`
}

// Manifest is the per-channel mapping from fingerprint to source info.
type Manifest map[string]ManifestEntry

// ManifestPath returns the on-disk path of a channel's manifest.
func (s *Store) ManifestPath(slug string) string {
	return filepath.Join(s.ChannelDir(slug), manifestName)
}

// ReadManifest reads a channel manifest. A missing file is an empty manifest.
func (s *Store) ReadManifest(slug string) (Manifest, error) {
	data, err := os.ReadFile(s.ManifestPath(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// AddManifestEntry inserts or replaces one entry and writes the manifest
// atomically. The scheduler is the only writer, so read-modify-write is safe.
func (s *Store) AddManifestEntry(slug, fingerprint string, entry ManifestEntry) error {
	m, err := s.ReadManifest(slug)
	if err != nil {
		return err
	}
	m[fingerprint] = entry
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(s.ChannelDir(slug), 0o755); err != nil {
		return fmt.Errorf("create channel dir: %w", err)
	}
	if err := renameio.WriteFile(s.ManifestPath(slug), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
