package app

import (
	"fmt"
	"math"
	"strings"
)

// Rolling-window bounds for the synthesized live playlist: how many
// segments are kept behind the live edge and how many upcoming
// segments are announced.
const (
	windowBehind = 30
	windowAhead  = 2000
)

// emptyManifest is served for channels with no complete bundles.
const emptyManifest = "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-ENDLIST\n"

// segmentRecord is one segment of the compiled loop.
type segmentRecord struct {
	videoIndex int
	durationS  float64
	url        string
	// cumS is the running duration total including this segment, so
	// records[i].cumS is the loop time at which segment i ends.
	cumS float64
}

// programVideo is a per-source summary of the compiled program.
type programVideo struct {
	item      sourceItem
	startS    float64
	durationS float64
}

// compiledProgram is the flattened, looped segment timeline of one
// channel. Immutable once published.
type compiledProgram struct {
	records   []segmentRecord
	videos    []programVideo
	totalDurS float64
}

// synthesizePlaylist renders the rolling live manifest for a channel
// offset in seconds since the epoch. Pure computation over the
// compiled program: no clocks, no filesystem.
func synthesizePlaylist(prog *compiledProgram, offsetS float64) string {
	if prog == nil || len(prog.records) == 0 || prog.totalDurS <= 0 {
		return emptyManifest
	}
	L := len(prog.records)
	T := prog.totalDurS
	loopCount := int(offsetS / T)
	phase := offsetS - float64(loopCount)*T

	// The segment on air is the first record whose end time exceeds
	// phase. The fallback to 0 is reachable only when floating-point
	// rounding pushes phase up to T.
	k := 0
	for i := range prog.records {
		if prog.records[i].cumS > phase {
			k = i
			break
		}
	}

	startIdx := k - windowBehind
	if startIdx < 0 {
		startIdx = 0
	}
	n := (k - startIdx) + windowAhead

	maxDur := 2.0
	for j := 0; j < n; j++ {
		if d := prog.records[(startIdx+j)%L].durationS; d > maxDur {
			maxDur = d
		}
	}

	var b strings.Builder
	b.Grow(80 + n*64)
	fmt.Fprintf(&b, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:%d\n#EXT-X-MEDIA-SEQUENCE:%d\n",
		int(math.Ceil(maxDur)), loopCount*L+startIdx)
	prev := -1
	for j := 0; j < n; j++ {
		rec := &prog.records[(startIdx+j)%L]
		if prev >= 0 && rec.videoIndex != prev {
			b.WriteString("#EXT-X-DISCONTINUITY\n")
		}
		fmt.Fprintf(&b, "#EXTINF:%.6f,\n%s\n", rec.durationS, rec.url)
		prev = rec.videoIndex
	}
	return b.String()
}
