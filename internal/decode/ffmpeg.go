// SPDX-License-Identifier: MIT

package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/swapline/swapline/internal/ffcmd"
	"github.com/swapline/swapline/internal/metrics"
)

// FFmpegOptions configures a subprocess decode source.
type FFmpegOptions struct {
	FFmpegPath string
	Input      string
	Width      int
	Height     int
	// FPS > 0 installs a source-side rate filter so dropped frames are
	// never decoded into the pipeline at all.
	FPS       float64
	PreArgs   []string // caller args before -i
	PostArgs  []string // caller args after -i
	TrailArgs []string // caller args after the output spec
	Grace     time.Duration
}

// FFmpegSource reads a tightly packed bgr24 rawvideo stream from a
// decoder subprocess's stdout, exactly Width*Height*3 bytes per frame.
type FFmpegSource struct {
	proc    *ffcmd.Proc
	width   int
	height  int
	ordinal int
	eof     bool
	closed  bool
}

// BuildReaderArgs constructs the decoder argument vector. Exported for
// tests; no shell is ever involved.
func BuildReaderArgs(opts FFmpegOptions) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	args = append(args, opts.PreArgs...)
	args = append(args, "-i", opts.Input)
	args = append(args, opts.PostArgs...)
	if opts.FPS > 0 {
		args = append(args, "-filter:v", "fps=fps="+strconv.FormatFloat(opts.FPS, 'f', -1, 64))
	}
	args = append(args, "-pix_fmt", "bgr24", "-f", "rawvideo", "pipe:")
	args = append(args, opts.TrailArgs...)
	return args
}

// OpenFFmpeg spawns the decoder subprocess and returns the frame source.
func OpenFFmpeg(ctx context.Context, opts FFmpegOptions) (*FFmpegSource, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("decode: invalid frame geometry %dx%d", opts.Width, opts.Height)
	}
	bin := opts.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool:   "ffmpeg-reader",
		Path:   bin,
		Args:   BuildReaderArgs(opts),
		Grace:  opts.Grace,
		Stdout: true,
	})
	if err != nil {
		return nil, err
	}

	return &FFmpegSource{proc: proc, width: opts.Width, height: opts.Height}, nil
}

// Next reads the next frame. A short final read that is not a clean EOF
// yields a *TruncatedStreamError; a clean end of stream waits for the
// decoder to exit and returns io.EOF (or the decoder's failure).
func (s *FFmpegSource) Next() (Frame, error) {
	if s.eof {
		return Frame{}, io.EOF
	}

	size := s.width * s.height * 3
	buf := make([]byte, size)
	n, err := io.ReadFull(s.proc.Stdout(), buf)
	switch {
	case err == nil:
		s.ordinal++
		metrics.IncFramesDecoded()
		return Frame{Ordinal: s.ordinal, Width: s.width, Height: s.height, Data: buf}, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
		// Prefer the decoder's own failure over the symptom.
		if werr := s.proc.Wait(); werr != nil {
			return Frame{}, werr
		}
		return Frame{}, &TruncatedStreamError{Ordinal: s.ordinal + 1, Got: n, Want: size}
	case errors.Is(err, io.EOF):
		s.eof = true
		if werr := s.proc.Wait(); werr != nil {
			return Frame{}, werr
		}
		return Frame{}, io.EOF
	default:
		s.eof = true
		return Frame{}, fmt.Errorf("read decoder stream: %w", err)
	}
}

// Close tears the decoder down. Safe after EOF and idempotent; a non-EOF
// consumer abandoning the stream gets the process group killed rather
// than leaked.
func (s *FFmpegSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	// Terminate is sticky: after a consumed Wait it just returns the
	// stored result, otherwise it reaps the process group.
	_ = s.proc.Terminate()
	return nil
}
