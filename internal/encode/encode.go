// SPDX-License-Identifier: MIT

// Package encode turns swapped frames back into a video container. Both
// encoders write to a staged temp sibling of the final path and promote
// only after a clean encoder exit, so a crashed run never leaves a
// partial file claiming to be the output.
package encode

import (
	"fmt"
	"strconv"
	"time"
)

// AudioOptions describes the optional audio leg muxed in the same encoder
// pass. An empty Source means video only.
type AudioOptions struct {
	Source   string // container holding the original audio track
	Copy     bool   // stream-copy the audio instead of re-encoding to aac
	Shortest bool   // stop at the shorter of video and audio
}

func (a AudioOptions) inputArgs() []string {
	if a.Source == "" {
		return nil
	}
	return []string{"-i", a.Source}
}

func (a AudioOptions) mapArgs() []string {
	if a.Source == "" {
		return nil
	}
	args := []string{"-map", "0:v", "-map", "1:a"}
	if a.Copy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac")
	}
	if a.Shortest {
		args = append(args, "-shortest")
	}
	return args
}

// VideoOptions holds the x264 settings shared by both encoders.
type VideoOptions struct {
	CRF    int
	Preset string
}

func (v VideoOptions) args() []string {
	args := []string{"-c:v", "libx264"}
	if v.Preset != "" {
		args = append(args, "-preset", v.Preset)
	}
	args = append(args,
		"-crf", strconv.Itoa(v.CRF),
		"-pix_fmt", "yuv420p",
	)
	return args
}

// StreamOptions configures a stdin-fed rawvideo encoder.
type StreamOptions struct {
	FFmpegPath string
	Output     string // final path, staging is handled internally
	Width      int
	Height     int
	FPS        float64
	Video      VideoOptions
	Audio      AudioOptions
	ExtraArgs  []string // inserted before the output path
	Overwrite  bool
	Grace      time.Duration
}

// BuildStreamArgs assembles the encoder argv for a bgr24 rawvideo stdin
// feed writing to dest.
func BuildStreamArgs(opts StreamOptions, dest string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", formatRate(opts.FPS),
		"-i", "pipe:",
	}
	args = append(args, opts.Audio.inputArgs()...)
	args = append(args, opts.Audio.mapArgs()...)
	args = append(args, opts.Video.args()...)
	args = append(args, opts.ExtraArgs...)
	args = append(args, "-y", dest)
	return args
}

// FrameDirOptions configures encoding from a directory of ordinal-named
// frame files.
type FrameDirOptions struct {
	FFmpegPath string
	Output     string
	Pattern    string // full input pattern path, e.g. dir/%05d.png
	FPS        float64
	Video      VideoOptions
	Audio      AudioOptions
	ExtraArgs  []string
	Overwrite  bool
	Grace      time.Duration
}

// BuildFrameDirArgs assembles the encoder argv for a numbered image
// sequence writing to dest.
func BuildFrameDirArgs(opts FrameDirOptions, dest string) []string {
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-framerate", formatRate(opts.FPS),
		"-i", opts.Pattern,
	}
	args = append(args, opts.Audio.inputArgs()...)
	args = append(args, opts.Audio.mapArgs()...)
	args = append(args, opts.Video.args()...)
	args = append(args, opts.ExtraArgs...)
	args = append(args, "-y", dest)
	return args
}

// formatRate prints an fps value without a trailing mantissa for whole
// rates, so "25" rather than "25.000000".
func formatRate(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
