// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/swapline/swapline/internal/log"
)

// ParseString reads a string from an environment variable or returns the
// default. The source is logged at debug level for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").Msg("using environment variable")
		return value
	}
	logger.Debug().Str("key", key).Str("default", defaultValue).Str("source", "default").Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer environment variable, falling back to the
// default on absence or parse failure.
func ParseInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", raw).Msg("invalid integer, using default")
		return defaultValue
	}
	return v
}

// ParseFloat reads a float environment variable, falling back to the
// default on absence or parse failure.
func ParseFloat(key string, defaultValue float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", raw).Msg("invalid float, using default")
		return defaultValue
	}
	return v
}

// ParseBool reads a boolean environment variable ("1", "t", "true", ...),
// falling back to the default on absence or parse failure.
func ParseBool(key string, defaultValue bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", raw).Msg("invalid boolean, using default")
		return defaultValue
	}
	return v
}

// ParseDuration reads a duration environment variable ("5s", "1m", ...),
// falling back to the default on absence or parse failure.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return defaultValue
	}
	return v
}

// applyEnv overlays SWAPLINE_* environment variables onto cfg.
func applyEnv(cfg Config) Config {
	cfg.FFmpegPath = ParseString("SWAPLINE_FFMPEG", cfg.FFmpegPath)
	cfg.FFprobePath = ParseString("SWAPLINE_FFPROBE", cfg.FFprobePath)
	cfg.UseGPU = ParseBool("SWAPLINE_GPU", cfg.UseGPU)
	cfg.ParallelCPU = ParseInt("SWAPLINE_PARALLEL_CPU", cfg.ParallelCPU)
	cfg.ParallelGPU = ParseInt("SWAPLINE_PARALLEL_GPU", cfg.ParallelGPU)
	cfg.TargetFPS = ParseFloat("SWAPLINE_FPS_TARGET", cfg.TargetFPS)
	cfg.SourceFPS = ParseFloat("SWAPLINE_FPS_SOURCE", cfg.SourceFPS)
	cfg.CRF = ParseInt("SWAPLINE_CRF", cfg.CRF)
	cfg.Preset = ParseString("SWAPLINE_PRESET", cfg.Preset)
	cfg.Format = ParseString("SWAPLINE_FORMAT", cfg.Format)
	cfg.ImageFormat = ParseString("SWAPLINE_IMG_FORMAT", cfg.ImageFormat)
	cfg.PlainFormat = ParseString("SWAPLINE_PLAIN_FORMAT", cfg.PlainFormat)
	cfg.AudioOutput = ParseBool("SWAPLINE_AUDIO_OUTPUT", cfg.AudioOutput)
	cfg.DirectAudio = ParseBool("SWAPLINE_DIRECT_AUDIO", cfg.DirectAudio)
	cfg.AudioShortest = ParseBool("SWAPLINE_AUDIO_SHORTEST", cfg.AudioShortest)
	cfg.Overwrite = ParseBool("SWAPLINE_OVERWRITE", cfg.Overwrite)
	cfg.RedoSwapped = ParseBool("SWAPLINE_REDO_SWAPPED", cfg.RedoSwapped)
	cfg.RedoCompleted = ParseBool("SWAPLINE_REDO_COMPLETED", cfg.RedoCompleted)
	cfg.SuffixIn = ParseString("SWAPLINE_SUFFIX_IN", cfg.SuffixIn)
	cfg.SuffixOut = ParseString("SWAPLINE_SUFFIX_OUT", cfg.SuffixOut)
	cfg.PadWidth = ParseInt("SWAPLINE_PAD_WIDTH", cfg.PadWidth)
	cfg.WorkDir = ParseString("SWAPLINE_WORK_DIR", cfg.WorkDir)
	cfg.WorkDirRoot = ParseString("SWAPLINE_WORK_DIR_ROOT", cfg.WorkDirRoot)
	cfg.FramesDir = ParseString("SWAPLINE_FRAMES_DIR", cfg.FramesDir)
	cfg.SwappedDir = ParseString("SWAPLINE_SWAPPED_DIR", cfg.SwappedDir)
	cfg.KeepFrames = ParseBool("SWAPLINE_KEEP_FRAMES", cfg.KeepFrames)
	cfg.KillGrace = ParseDuration("SWAPLINE_KILL_GRACE", cfg.KillGrace)
	return cfg
}
