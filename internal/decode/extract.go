// SPDX-License-Identifier: MIT

package decode

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/swapline/swapline/internal/ffcmd"
	"github.com/swapline/swapline/internal/log"
)

// ExtractOptions configures frame extraction into a directory.
type ExtractOptions struct {
	FFmpegPath string
	Input      string
	OutDir     string
	Pattern    string  // numbered filename pattern, e.g. "%05d.png"
	FPS        float64 // > 0 applies a source-side rate filter
	ExtraArgs  []string
	Grace      time.Duration
}

// BuildExtractArgs constructs the extraction argument vector.
func BuildExtractArgs(opts ExtractOptions) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	args = append(args, "-i", opts.Input)
	if opts.FPS > 0 {
		args = append(args, "-filter:v", "fps=fps="+strconv.FormatFloat(opts.FPS, 'f', -1, 64))
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, filepath.Join(opts.OutDir, opts.Pattern))
	return args
}

// ExtractFrames decodes the source into numbered frame files. The output
// directory becomes the resumable on-disk input for file-mode dispatch.
func ExtractFrames(ctx context.Context, opts ExtractOptions) error {
	bin := opts.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	logger := log.WithComponentFromContext(ctx, "decode")
	logger.Info().Str("input", opts.Input).Str("dir", opts.OutDir).Msg("extracting frames")

	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool:  "ffmpeg-extract",
		Path:  bin,
		Args:  BuildExtractArgs(opts),
		Grace: opts.Grace,
	})
	if err != nil {
		return err
	}
	return proc.Wait()
}
