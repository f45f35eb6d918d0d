// SPDX-License-Identifier: MIT

package encode

import (
	"context"
	"errors"
	"fmt"

	"github.com/swapline/swapline/internal/decode"
	"github.com/swapline/swapline/internal/ffcmd"
	"github.com/swapline/swapline/internal/fsutil"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/metrics"
)

// StreamSink feeds bgr24 frames to a live encoder over stdin. The sink
// owns the staged output: Finish promotes it after a clean encoder exit,
// Abort tears the encoder down and discards the temp file.
type StreamSink struct {
	proc      *ffcmd.Proc
	stage     *fsutil.Stage
	frameSize int
	written   int
	finished  bool
}

// NewStreamSink acquires the output path and starts the encoder.
func NewStreamSink(ctx context.Context, opts StreamOptions) (*StreamSink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", opts.FPS)
	}

	stage, err := fsutil.NewStage(opts.Output, opts.Overwrite)
	if err != nil {
		return nil, err
	}

	args := BuildStreamArgs(opts, stage.TempPath())
	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool:  "ffmpeg-encoder",
		Path:  opts.FFmpegPath,
		Args:  args,
		Grace: opts.Grace,
		Stdin: true,
	})
	if err != nil {
		stage.Discard()
		return nil, err
	}

	logger := log.WithComponentFromContext(ctx, "encode")
	logger.Info().Str("output", opts.Output).Int("width", opts.Width).Int("height", opts.Height).Msg("encoder started")

	return &StreamSink{
		proc:      proc,
		stage:     stage,
		frameSize: opts.Width * opts.Height * 3,
	}, nil
}

// WriteFrame sends one frame to the encoder. A write failure usually
// means the encoder already died; the caller should Abort and surface the
// encoder error.
func (s *StreamSink) WriteFrame(frame decode.Frame) error {
	if got := len(frame.Data); got != s.frameSize {
		return fmt.Errorf("frame %d has %d bytes, want %d", frame.Ordinal, got, s.frameSize)
	}
	if _, err := s.proc.Stdin().Write(frame.Data); err != nil {
		// The exit error carries the encoder's stderr tail, which is far
		// more useful than a bare EPIPE.
		if werr := s.proc.Terminate(); werr != nil {
			return werr
		}
		return fmt.Errorf("write frame %d: %w", frame.Ordinal, err)
	}
	s.written++
	return nil
}

// Written returns the number of frames accepted so far.
func (s *StreamSink) Written() int {
	return s.written
}

// Finish signals EOF to the encoder, waits for it to exit, and promotes
// the staged output. Finishing with zero frames written is an error.
func (s *StreamSink) Finish() error {
	if s.finished {
		return errors.New("encode already finished")
	}
	s.finished = true

	if s.written == 0 {
		s.Abort()
		return errors.New("no frames written to encoder")
	}

	if err := s.proc.Stdin().Close(); err != nil {
		_ = s.proc.Terminate()
		s.stage.Discard()
		metrics.IncEncodeResult("error")
		return fmt.Errorf("close encoder stdin: %w", err)
	}
	if err := s.proc.Wait(); err != nil {
		s.stage.Discard()
		metrics.IncEncodeResult("error")
		return err
	}
	if err := s.stage.Promote(); err != nil {
		s.stage.Discard()
		metrics.IncEncodeResult("error")
		return err
	}
	metrics.IncEncodeResult("ok")
	return nil
}

// Abort kills the encoder and removes the staged temp file. Safe after
// Finish and safe to call more than once.
func (s *StreamSink) Abort() {
	_ = s.proc.Terminate()
	s.stage.Discard()
}

// EncodeFrameDir runs a one-shot encode over an ordinal-named frame
// directory, staging and promoting the output like the stream sink.
func EncodeFrameDir(ctx context.Context, opts FrameDirOptions) error {
	if opts.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", opts.FPS)
	}

	stage, err := fsutil.NewStage(opts.Output, opts.Overwrite)
	if err != nil {
		return err
	}
	defer stage.Discard()

	args := BuildFrameDirArgs(opts, stage.TempPath())
	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool:  "ffmpeg-encoder",
		Path:  opts.FFmpegPath,
		Args:  args,
		Grace: opts.Grace,
	})
	if err != nil {
		return err
	}

	logger := log.WithComponentFromContext(ctx, "encode")
	logger.Info().Str("output", opts.Output).Str("pattern", opts.Pattern).Msg("encoding frame directory")

	if err := proc.Wait(); err != nil {
		metrics.IncEncodeResult("error")
		return err
	}
	if err := stage.Promote(); err != nil {
		metrics.IncEncodeResult("error")
		return err
	}
	metrics.IncEncodeResult("ok")
	return nil
}
