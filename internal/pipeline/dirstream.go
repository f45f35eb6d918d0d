// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"

	"github.com/swapline/swapline/internal/decode"
	"github.com/swapline/swapline/internal/frames"
	"github.com/swapline/swapline/internal/probe"
)

// runStreamFromFrames streams a pre-extracted frame directory through the
// pool without writing per-frame outputs. Geometry comes from the first
// frame's image header; the rate must be supplied by configuration since
// a directory carries no timing.
func (p *Pipeline) runStreamFromFrames(ctx context.Context, req Request, output string, fpsUse, fpsOut float64) error {
	entries, err := frames.Scan(req.Source, p.cfg.SuffixIn, true)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no frames in %s", ErrInputNotFound, req.Source)
	}
	if fpsUse > 0 {
		entries = subsampleEntries(entries, p.cfg.SourceFPS, fpsUse)
	}

	width, height, err := decode.ProbeImageSize(entries[0].Path)
	if err != nil {
		return err
	}
	info := probe.VideoInfo{Width: width, Height: height, FPS: fpsOut}

	src := decode.OpenFiles(entries)
	defer func() { _ = src.Close() }()
	return p.streamInto(ctx, req, output, info, src, fpsOut)
}

// subsampleEntries drops frames to take a source-rate sequence down to
// the target rate, the way a rate filter buckets timestamps: a frame is
// kept whenever it opens a new output slot. Ordinals are renumbered so
// the result is again a gapless 1..n sequence.
func subsampleEntries(entries []frames.Entry, sourceFPS, targetFPS float64) []frames.Entry {
	if sourceFPS <= 0 || targetFPS <= 0 || targetFPS >= sourceFPS {
		return entries
	}

	kept := entries[:0:0]
	last := 0
	for i, e := range entries {
		slot := int(float64(i+1) * targetFPS / sourceFPS)
		if slot > last {
			last = slot
			e.Ordinal = len(kept) + 1
			kept = append(kept, e)
		}
	}
	return kept
}
