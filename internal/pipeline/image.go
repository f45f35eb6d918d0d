// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/swapline/swapline/internal/decode"
	"github.com/swapline/swapline/internal/dispatch"
	"github.com/swapline/swapline/internal/encode"
	"github.com/swapline/swapline/internal/frames"
	"github.com/swapline/swapline/internal/fsutil"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/metrics"
	"github.com/swapline/swapline/internal/mux"
	"github.com/swapline/swapline/internal/probe"
	"github.com/swapline/swapline/internal/resume"
)

// runImageMode is the resumable path: frames live as files, done-ness is
// defined purely by swapped-output existence, and an interrupted run
// picks up where it stopped.
func (p *Pipeline) runImageMode(ctx context.Context, req Request, output string, info probe.VideoInfo, fpsUse, fpsOut float64, sourceIsDir bool) error {
	logger := log.WithComponentFromContext(ctx, "pipeline")
	workDir := workDirFor(p.cfg, output)

	framesDir := req.Source
	framesDerived := false
	if !sourceIsDir {
		var err error
		framesDir, framesDerived, err = framesDirFor(p.cfg, workDir, req.Source, fpsUse)
		if err != nil {
			return err
		}
		if st, err := os.Stat(framesDir); err == nil && st.IsDir() {
			// An earlier run extracted here already; the files are the
			// checkpoint, so extraction is skipped wholesale.
			logger.Info().Str("dir", framesDir).Msg("frames dir exists, reusing")
		} else {
			if err := fsutil.MakeDirBounded(framesDir, 2); err != nil {
				return err
			}
			if err := decode.ExtractFrames(ctx, decode.ExtractOptions{
				FFmpegPath: p.cfg.FFmpegPath,
				Input:      req.Source,
				OutDir:     framesDir,
				Pattern:    frames.Pattern(p.cfg.SuffixIn, p.cfg.PadWidth),
				FPS:        fpsUse,
				ExtraArgs:  p.cfg.ExtraReaderArgs,
				Grace:      p.cfg.KillGrace,
			}); err != nil {
				return err
			}
		}
	} else {
		logger.Info().Str("dir", framesDir).Msg("using image sequence source")
	}

	var entries []frames.Entry
	var err error
	if output != "" {
		entries, err = frames.Scan(framesDir, p.cfg.SuffixIn, true)
	} else {
		entries, err = scanCollection(framesDir, p.cfg.SuffixIn)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no frames in %s", ErrInputNotFound, framesDir)
	}

	swappedDir, swappedDerived, err := swappedDirFor(p.cfg, workDir, req.Source, fpsUse)
	if err != nil {
		return err
	}

	part, err := resume.Plan(entries, swappedDir, p.cfg.SuffixIn, p.cfg.SuffixOut)
	if err != nil {
		return err
	}
	part, err = part.Apply(resume.RedoPolicy{
		Partial:   p.cfg.RedoSwapped,
		Completed: p.cfg.RedoCompleted,
	})
	if err != nil {
		return err
	}
	logger.Info().
		Int("total", len(part.All)).
		Int("todo", len(part.Todo)).
		Int("done", len(part.Done)).
		Msg("partitioned frames")

	if len(part.Todo) == 0 {
		logger.Info().Msg("all frames already swapped")
	} else if err := dispatch.Batch(ctx, dispatch.BatchOptions{
		Workers: p.cfg.Workers(),
		GPU:     p.cfg.UseGPU,
	}, part.Todo, p.factory); err != nil {
		return err
	}

	if output == "" {
		logger.Info().Str("dir", swappedDir).Msg("swapped image collection written")
		return nil
	}

	strategy := mux.Select(p.cfg.AudioOutput, p.cfg.DirectAudio, info.HasAudio)
	encodeOut, audio := p.encodeTarget(strategy, output, req.Source)
	if err := encode.EncodeFrameDir(ctx, encode.FrameDirOptions{
		FFmpegPath: p.cfg.FFmpegPath,
		Output:     encodeOut,
		Pattern:    filepath.Join(swappedDir, frames.Pattern(p.cfg.SuffixOut, p.cfg.PadWidth)),
		FPS:        fpsOut,
		Video:      encode.VideoOptions{CRF: p.cfg.CRF, Preset: p.cfg.Preset},
		Audio:      audio,
		ExtraArgs:  p.cfg.ExtraEncodeArgs,
		Overwrite:  p.cfg.Overwrite,
		Grace:      p.cfg.KillGrace,
	}); err != nil {
		return err
	}

	if strategy == mux.PlainThenMerge {
		if err := p.mergePlain(ctx, encodeOut, req.Source, output); err != nil {
			return err
		}
	}

	if !p.cfg.KeepFrames {
		cleanupScratch(logger, framesDir, framesDerived)
		cleanupScratch(logger, swappedDir, swappedDerived)
	}
	return nil
}

// scanCollection wraps a free-form image listing into ordered entries.
// Ordinals are positional only; nothing downstream derives timing from
// them in collection mode.
func scanCollection(dir, suffix string) ([]frames.Entry, error) {
	paths, err := frames.ScanImages(dir, suffix)
	if err != nil {
		return nil, err
	}
	entries := make([]frames.Entry, 0, len(paths))
	for i, path := range paths {
		entries = append(entries, frames.Entry{Ordinal: i + 1, Path: path})
	}
	return entries, nil
}

// cleanupScratch removes a run-derived scratch dir after a fully
// successful encode. Explicitly configured directories are never touched.
func cleanupScratch(logger zerolog.Logger, dir string, derived bool) {
	if !derived {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("could not remove scratch dir")
		return
	}
	logger.Info().Str("dir", dir).Msg("removed scratch dir")
}

// runSingleImage swaps one still image through a single transform.
func (p *Pipeline) runSingleImage(ctx context.Context, source, output string) error {
	logger := log.WithComponentFromContext(ctx, "pipeline")
	logger.Info().Str("source", source).Str("output", output).Msg("single image swap")

	transform, err := p.factory(ctx, dispatch.Worker{Index: 0, GPU: p.cfg.UseGPU})
	if err != nil {
		return fmt.Errorf("create transform: %w", err)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	swapped, err := transform.Apply(ctx, data)
	if err != nil {
		metrics.IncWorkerFailure()
		return &dispatch.WorkerError{Worker: 0, Ordinal: 1, Err: err}
	}

	stage, err := fsutil.NewStage(output, p.cfg.Overwrite)
	if err != nil {
		return err
	}
	defer stage.Discard()
	if err := os.WriteFile(stage.TempPath(), swapped, 0o644); err != nil {
		return err
	}
	if err := stage.Promote(); err != nil {
		return err
	}
	metrics.IncFramesSwapped("image", 1)
	return nil
}
