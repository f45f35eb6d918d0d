// SPDX-License-Identifier: MIT

// Package config resolves the immutable pipeline configuration. Resolution
// order is defaults < YAML file < environment (SWAPLINE_*); the resulting
// Config value is passed into every component constructor and never mutated
// during a run.
package config

import "time"

// Config is the resolved pipeline configuration for one run.
type Config struct {
	// External tool paths.
	FFmpegPath  string `yaml:"ffmpeg"`
	FFprobePath string `yaml:"ffprobe"`

	// Worker counts. GPU mode with ParallelGPU == 1 bypasses the pool and
	// processes frames sequentially in the caller.
	UseGPU      bool `yaml:"gpu"`
	ParallelCPU int  `yaml:"parallel_cpu"`
	ParallelGPU int  `yaml:"parallel_gpu"`

	// Frame-rate policy. TargetFPS caps the source rate: it only drops
	// frames when the source is faster, never duplicates. SourceFPS is
	// required for directory (image-sequence) sources that carry no
	// derivable rate.
	TargetFPS float64 `yaml:"fps_target"`
	SourceFPS float64 `yaml:"fps_source"`

	// Encoder parameters.
	CRF             int      `yaml:"crf"`
	Preset          string   `yaml:"preset"`
	Format          string   `yaml:"format"`       // video container, e.g. "mp4"
	ImageFormat     string   `yaml:"img_format"`   // image container, e.g. "png"
	PlainFormat     string   `yaml:"plain_format"` // container for .plain artifacts, defaults to Format
	ExtraReaderArgs []string `yaml:"reader_args"`  // appended to the decoder invocation
	ExtraEncodeArgs []string `yaml:"encode_args"`  // appended to the encoder invocation
	ExtraMuxArgs    []string `yaml:"mux_args"`     // appended to the audio merge invocation

	// Audio policy.
	AudioOutput   bool `yaml:"audio_output"`   // copy source audio into the result at all
	DirectAudio   bool `yaml:"direct_audio"`   // mux audio in the encode pass instead of two-stage
	AudioShortest bool `yaml:"audio_shortest"` // truncate merged output to the shorter stream

	// Resumability policy.
	Overwrite     bool `yaml:"overwrite"`
	RedoSwapped   bool `yaml:"redo_swapped"`   // partial done set: delete done outputs, redo all
	RedoCompleted bool `yaml:"redo_completed"` // fully done set: delete everything, redo all

	// Frame naming.
	SuffixIn  string `yaml:"suffix_in"`  // suffix of extracted frame files
	SuffixOut string `yaml:"suffix_out"` // suffix of swapped frame files
	PadWidth  int    `yaml:"pad_width"`  // zero-pad width of frame ordinals

	// Working directories for image mode. WorkDir wins over WorkDirRoot.
	WorkDir     string `yaml:"work_dir"`
	WorkDirRoot string `yaml:"work_dir_root"`
	FramesDir   string `yaml:"frames_dir"`
	SwappedDir  string `yaml:"swapped_dir"`
	KeepFrames  bool   `yaml:"keep_frames"`

	// Subprocess teardown grace before SIGKILL.
	KillGrace time.Duration `yaml:"kill_grace"`
}

// Default returns the baseline configuration before file and environment
// overrides are applied.
func Default() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		ParallelCPU: 4,
		ParallelGPU: 1,
		CRF:         15,
		Preset:      "superfast",
		Format:      "mp4",
		ImageFormat: "png",
		AudioOutput: true,
		SuffixIn:    ".png",
		SuffixOut:   ".png",
		PadWidth:    5,
		KillGrace:   5 * time.Second,
	}
}

// Workers returns the effective worker count for the configured device mode.
func (c Config) Workers() int {
	if c.UseGPU {
		return c.ParallelGPU
	}
	return c.ParallelCPU
}

// PlainContainer returns the container used for the audio-less .plain
// artifact, falling back to the main video container.
func (c Config) PlainContainer() string {
	if c.PlainFormat != "" {
		return c.PlainFormat
	}
	return c.Format
}
