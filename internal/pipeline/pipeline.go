// SPDX-License-Identifier: MIT

// Package pipeline orchestrates a full swap run: input validation, probe,
// frame-rate policy, decode, parallel dispatch, encode and audio merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/swapline/swapline/internal/config"
	"github.com/swapline/swapline/internal/dispatch"
	"github.com/swapline/swapline/internal/frames"
	"github.com/swapline/swapline/internal/fsutil"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/probe"
)

// Request describes one swap run.
type Request struct {
	Face           string
	Source         string
	Output         string // concrete output path, empty for defaults
	OutputTemplate string // templated output path, exclusive with Output
	ImageMode      bool   // file-based resumable mode
}

// Pipeline runs swap requests against a resolved configuration. The swap
// network itself stays behind the dispatch.Factory.
type Pipeline struct {
	cfg     config.Config
	prober  *probe.Prober
	factory dispatch.Factory
}

// New builds a pipeline. The factory is invoked once per worker at
// dispatch time.
func New(cfg config.Config, factory dispatch.Factory) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		prober:  &probe.Prober{Path: cfg.FFprobePath},
		factory: factory,
	}
}

// Run executes one swap request end to end.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	if log.RunIDFromContext(ctx) == "" {
		ctx = log.ContextWithRunID(ctx, uuid.NewString())
	}
	logger := log.WithComponentFromContext(ctx, "pipeline")

	if err := fsutil.IsRegularFile(req.Face); err != nil {
		return fmt.Errorf("%w: face %s", ErrInputNotFound, req.Face)
	}
	srcInfo, err := os.Stat(req.Source)
	if err != nil {
		return fmt.Errorf("%w: source %s", ErrInputNotFound, req.Source)
	}
	sourceIsDir := srcInfo.IsDir()
	sourceIsImage := !sourceIsDir && frames.IsImagePath(req.Source)

	if req.Output != "" && req.OutputTemplate != "" {
		return errors.New("got both a concrete output path and an output template")
	}
	output := req.Output
	if req.OutputTemplate != "" {
		output, err = ExpandOutput(req.OutputTemplate, req.Source, req.Face, p.cfg)
		if err != nil {
			return err
		}
		logger.Info().Str("output", output).Msg("expanded output template")
	}

	// Image mode without any output swaps into the frames dir only.
	collectionOnly := req.ImageMode && output == ""
	if !collectionOnly {
		output = ResolveOutput(output, req.Source, sourceIsImage, p.cfg)
		if !p.cfg.Overwrite {
			if _, err := os.Lstat(output); err == nil {
				return fmt.Errorf("%w: %s", fsutil.ErrOutputExists, output)
			}
		}
	}

	if sourceIsImage && !req.ImageMode {
		return p.runSingleImage(ctx, req.Source, output)
	}

	var info probe.VideoInfo
	if sourceIsDir {
		info = probe.VideoInfo{FPS: p.cfg.SourceFPS}
	} else {
		info, err = p.prober.Probe(ctx, req.Source)
		if err != nil {
			return err
		}
		if p.cfg.SourceFPS > 0 {
			info.FPS = p.cfg.SourceFPS
		}
	}
	if !collectionOnly && info.FPS <= 0 {
		return fmt.Errorf("%w: %s", ErrMissingFrameRate, req.Source)
	}

	fpsUse, fpsOut := clampFPS(info.FPS, p.cfg.TargetFPS)
	if fpsUse > 0 {
		logger.Info().Float64("source_fps", info.FPS).Float64("fps", fpsUse).Msg("limiting frame rate")
	}

	if req.ImageMode {
		return p.runImageMode(ctx, req, output, info, fpsUse, fpsOut, sourceIsDir)
	}
	if sourceIsDir {
		return p.runStreamFromFrames(ctx, req, output, fpsUse, fpsOut)
	}
	return p.runStream(ctx, req, output, info, fpsUse, fpsOut)
}

// clampFPS applies the target-rate cap. The cap only ever drops frames:
// a source slower than the target passes through untouched, so the
// returned extraction rate is zero (no filter) in that case.
func clampFPS(source, target float64) (use, out float64) {
	if target > 0 && source > target {
		return target, target
	}
	return 0, source
}
