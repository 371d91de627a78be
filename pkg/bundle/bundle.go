// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bundle stores sealed per-source segment bundles below a cache root.
//
// A bundle is a directory named by the source fingerprint, holding numbered
// transport-stream segments, an HLS index playlist, and a metadata record.
// All filesystem access to bundle directories goes through Store.
package bundle

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// State describes what is found on disk for a bundle.
type State int

const (
	Absent State = iota
	Partial
	Complete
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	IndexName    = "index.m3u8"
	MetadataName = "metadata.json"
	endListTag   = "#EXT-X-ENDLIST"
)

var extInfRegexp = regexp.MustCompile(`#EXTINF:([0-9]+(\.[0-9]+)?)`)

// Segment is one entry of a bundle index.
type Segment struct {
	Filename  string
	DurationS float64
}

// Metadata is the per-bundle record written after a successful transcode.
// Duration is the transcode wall-time in seconds.
type Metadata struct {
	OriginalPath string  `json:"originalPath"`
	VideoHash    string  `json:"videoHash"`
	GeneratedAt  string  `json:"generatedAt"`
	Duration     float64 `json:"duration"`
}

// Fingerprint returns the stable 128-bit hex identity of a source path.
// The path string is hashed as-is. No symlink resolution or case folding.
func Fingerprint(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Store gives access to all bundles below a cache root directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// ChannelDir returns the directory for a channel's data.
func (s *Store) ChannelDir(slug string) string {
	return filepath.Join(s.root, "channels", slug)
}

// BundleDir returns the directory of one bundle.
func (s *Store) BundleDir(slug, fingerprint string) string {
	return filepath.Join(s.ChannelDir(slug), "videos", fingerprint)
}

// SegmentPath returns the on-disk path of one segment file.
func (s *Store) SegmentPath(slug, fingerprint, filename string) string {
	return filepath.Join(s.BundleDir(slug, fingerprint), filename)
}

// IndexPath returns the on-disk path of the bundle index playlist.
func (s *Store) IndexPath(slug, fingerprint string) string {
	return filepath.Join(s.BundleDir(slug, fingerprint), IndexName)
}

// Create makes the bundle directory and returns its path. Idempotent.
func (s *Store) Create(slug, fingerprint string) (string, error) {
	dir := s.BundleDir(slug, fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create bundle dir: %w", err)
	}
	return dir, nil
}

// Exists reports the bundle state. A bundle is complete iff its index is
// present and finalized, lists at least one segment that all exist on disk,
// and the metadata record is present. Everything short of that in an
// existing directory is partial.
func (s *Store) Exists(slug, fingerprint string) State {
	dir := s.BundleDir(slug, fingerprint)
	if _, err := os.Stat(dir); err != nil {
		return Absent
	}
	data, err := os.ReadFile(filepath.Join(dir, IndexName))
	if err != nil {
		return Partial
	}
	segments, finalized, err := parseIndex(data)
	if err != nil || !finalized || len(segments) == 0 {
		return Partial
	}
	for _, seg := range segments {
		if _, err := os.Stat(filepath.Join(dir, seg.Filename)); err != nil {
			return Partial
		}
	}
	if _, err := os.Stat(filepath.Join(dir, MetadataName)); err != nil {
		return Partial
	}
	return Complete
}

// Reap removes a bundle directory tree. Best-effort, used on partial bundles
// before they are transcoded again.
func (s *Store) Reap(slug, fingerprint string) error {
	return os.RemoveAll(s.BundleDir(slug, fingerprint))
}

// Open reads the bundle index and metadata of a complete bundle.
func (s *Store) Open(slug, fingerprint string) ([]Segment, *Metadata, error) {
	dir := s.BundleDir(slug, fingerprint)
	data, err := os.ReadFile(filepath.Join(dir, IndexName))
	if err != nil {
		return nil, nil, fmt.Errorf("read index: %w", err)
	}
	segments, finalized, err := parseIndex(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse index: %w", err)
	}
	if !finalized {
		return nil, nil, fmt.Errorf("index %s not finalized", filepath.Join(dir, IndexName))
	}
	md, err := s.ReadMetadata(slug, fingerprint)
	if err != nil {
		return nil, nil, err
	}
	return segments, md, nil
}

// WriteMetadata writes the metadata record atomically.
func (s *Store) WriteMetadata(slug, fingerprint string, md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	path := filepath.Join(s.BundleDir(slug, fingerprint), MetadataName)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata reads the metadata record.
func (s *Store) ReadMetadata(slug, fingerprint string) (*Metadata, error) {
	path := filepath.Join(s.BundleDir(slug, fingerprint), MetadataName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &md, nil
}

// parseIndex extracts (filename, duration) pairs from an HLS index playlist.
// Each #EXTINF line announces a duration; the next non-comment line is the
// segment filename. The finalized flag reports an #EXT-X-ENDLIST tag.
func parseIndex(data []byte) (segments []Segment, finalized bool, err error) {
	pendingDur := -1.0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#EXTINF:"):
			m := extInfRegexp.FindStringSubmatch(line)
			if m == nil {
				return nil, false, fmt.Errorf("bad EXTINF line %q", line)
			}
			d, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, false, fmt.Errorf("bad EXTINF duration %q: %w", m[1], err)
			}
			pendingDur = d
		case line == endListTag:
			finalized = true
		case strings.HasPrefix(line, "#"):
			continue
		default:
			if pendingDur < 0 {
				return nil, false, fmt.Errorf("segment line %q without EXTINF", line)
			}
			segments = append(segments, Segment{Filename: line, DurationS: pendingDur})
			pendingDur = -1.0
		}
	}
	return segments, finalized, nil
}

// TotalDuration sums the durations of segments in seconds.
func TotalDuration(segments []Segment) float64 {
	var sum float64
	for _, seg := range segments {
		sum += seg.DurationS
	}
	return sum
}
