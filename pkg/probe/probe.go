// Copyright 2026, the airwave authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package probe extracts duration and dimensions from video files.
// MP4-family files are read directly. Everything else goes through
// an external ffprobe binary.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

const ffprobeTimeout = 10 * time.Second

// mp4Extensions lists containers mp4ff can decode without ffprobe.
var mp4Extensions = map[string]bool{
	".mp4": true,
	".m4v": true,
	".mov": true,
}

// Result describes a probed video. Known is false when probing failed
// and the remaining fields carry no information.
type Result struct {
	Known     bool    `json:"known"`
	DurationS float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Codec     string  `json:"codec,omitempty"`
}

// Prober inspects video files. The zero value runs "ffprobe" from PATH
// for non-MP4 files.
type Prober struct {
	FFprobeBin string
}

// New returns a Prober using the given ffprobe binary path.
func New(ffprobeBin string) *Prober {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Prober{FFprobeBin: ffprobeBin}
}

// Probe inspects the file at path. MP4-family files are decoded
// in-process with a fallback to ffprobe. The returned error is
// advisory. A failed probe yields a Result with Known false.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	if mp4Extensions[strings.ToLower(filepath.Ext(path))] {
		if res, err := probeMP4(path); err == nil {
			return res, nil
		}
	}
	return p.ffprobe(ctx, path)
}

// probeMP4 reads the movie header without loading media data.
func probeMP4(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	mf, err := mp4.DecodeFile(f, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", path, err)
	}
	moov := mf.Moov
	if moov == nil || moov.Mvhd == nil || moov.Mvhd.Timescale == 0 {
		return Result{}, fmt.Errorf("no movie header in %s", path)
	}
	res := Result{
		Known:     true,
		DurationS: float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale),
	}
	for _, trak := range moov.Traks {
		if trak.Tkhd == nil || trak.Mdia == nil || trak.Mdia.Hdlr == nil {
			continue
		}
		if trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		// Tkhd stores dimensions as 16.16 fixed point.
		res.Width = int(trak.Tkhd.Width >> 16)
		res.Height = int(trak.Tkhd.Height >> 16)
		if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil {
			if stsd := trak.Mdia.Minf.Stbl.Stsd; stsd != nil && len(stsd.Children) > 0 {
				res.Codec = stsd.Children[0].Type()
			}
		}
		break
	}
	return res, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (p *Prober) ffprobe(ctx context.Context, path string) (Result, error) {
	bin := p.FFprobeBin
	if bin == "" {
		bin = "ffprobe"
	}
	ctx, cancel := context.WithTimeout(ctx, ffprobeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var doc ffprobeOutput
	if err := json.Unmarshal(out, &doc); err != nil {
		return Result{}, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(doc.Format.Duration, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse ffprobe duration %q: %w", doc.Format.Duration, err)
	}
	res := Result{Known: true, DurationS: dur}
	for _, s := range doc.Streams {
		if s.CodecType == "video" {
			res.Width = s.Width
			res.Height = s.Height
			res.Codec = s.CodecName
			break
		}
	}
	return res, nil
}
