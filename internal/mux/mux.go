// SPDX-License-Identifier: MIT

// Package mux decides how the original audio track reaches the final
// output and performs the second-stage merge when the encode ran without
// audio.
package mux

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/swapline/swapline/internal/ffcmd"
	"github.com/swapline/swapline/internal/fsutil"
	"github.com/swapline/swapline/internal/log"
)

// Strategy is the audio handling decision for one run.
type Strategy int

const (
	// NoAudio produces a silent output in a single encode pass.
	NoAudio Strategy = iota
	// DirectMux pulls the audio into the encode pass itself; no second
	// pass and no intermediate artifact.
	DirectMux
	// PlainThenMerge encodes a video-only intermediate first, then merges
	// the original audio in a separate remux pass. A pre-existing
	// intermediate is refused like any other output unless overwrite is
	// set.
	PlainThenMerge
)

func (s Strategy) String() string {
	switch s {
	case NoAudio:
		return "no-audio"
	case DirectMux:
		return "direct-mux"
	case PlainThenMerge:
		return "plain-then-merge"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Select picks the audio strategy. Audio is carried only when the run
// wants it and the source actually has a track; a direct preference is
// honored only when audio is carried at all.
func Select(wantAudio, direct, sourceHasAudio bool) Strategy {
	if !wantAudio || !sourceHasAudio {
		return NoAudio
	}
	if direct {
		return DirectMux
	}
	return PlainThenMerge
}

// PlainPath derives the intermediate video-only path for output by
// replacing its extension with ".plain.<container>": "out.mp4" with
// container "mp4" becomes "out.plain.mp4".
func PlainPath(output, container string) string {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return base + ".plain." + strings.TrimPrefix(container, ".")
}

// MergeOptions configures the audio merge pass.
type MergeOptions struct {
	FFmpegPath string
	Plain      string // video-only intermediate
	AudioFrom  string // original source carrying the audio track
	Output     string
	Copy       bool // stream-copy audio instead of re-encoding to aac
	Shortest   bool
	ExtraArgs  []string
	Overwrite  bool
	Grace      time.Duration
}

// BuildMergeArgs assembles the remux argv writing to dest. The video is
// always stream-copied; only the audio leg may be re-encoded.
func BuildMergeArgs(opts MergeOptions, dest string) []string {
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", opts.Plain,
		"-i", opts.AudioFrom,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy",
	}
	if opts.Copy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac")
	}
	if opts.Shortest {
		args = append(args, "-shortest")
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, "-y", dest)
	return args
}

// MergeAudio remuxes the plain intermediate with the source audio into
// the final output, staged and promoted atomically. The plain file is
// left in place for the caller to clean up after a successful promote.
func MergeAudio(ctx context.Context, opts MergeOptions) error {
	stage, err := fsutil.NewStage(opts.Output, opts.Overwrite)
	if err != nil {
		return err
	}
	defer stage.Discard()

	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool:  "ffmpeg-mux",
		Path:  opts.FFmpegPath,
		Args:  BuildMergeArgs(opts, stage.TempPath()),
		Grace: opts.Grace,
	})
	if err != nil {
		return err
	}

	logger := log.WithComponentFromContext(ctx, "mux")
	logger.Info().Str("plain", opts.Plain).Str("audio_from", opts.AudioFrom).Str("output", opts.Output).Msg("merging audio")

	if err := proc.Wait(); err != nil {
		return err
	}
	return stage.Promote()
}
