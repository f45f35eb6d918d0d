// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapline/swapline/internal/config"
)

func parseFlags(t *testing.T, args ...string) (*flag.FlagSet, *flagValues) {
	t.Helper()
	fs := flag.NewFlagSet("swapline", flag.ContinueOnError)
	fv := registerFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs, fv
}

func TestApplyFlagsOnlyOverridesSetFlags(t *testing.T) {
	cfg := config.Default()
	cfg.CRF = 20
	cfg.Preset = "medium"

	fs, fv := parseFlags(t, "-crf", "28")
	cfg = applyFlags(cfg, fs, fv)

	assert.Equal(t, 28, cfg.CRF, "set flag wins")
	assert.Equal(t, "medium", cfg.Preset, "unset flag must not reset to default")
}

func TestApplyFlagsNoAudioInverts(t *testing.T) {
	cfg := config.Default()
	require.True(t, cfg.AudioOutput)

	fs, fv := parseFlags(t, "-no-audio")
	cfg = applyFlags(cfg, fs, fv)
	assert.False(t, cfg.AudioOutput)
}

func TestApplyFlagsSplitsExtraArgs(t *testing.T) {
	fs, fv := parseFlags(t, "-encode-args", "-movflags +faststart")
	cfg := applyFlags(config.Default(), fs, fv)
	assert.Equal(t, []string{"-movflags", "+faststart"}, cfg.ExtraEncodeArgs)
}

func TestApplyFlagsWorkerSettings(t *testing.T) {
	fs, fv := parseFlags(t, "-gpu", "-parallel-gpu", "3")
	cfg := applyFlags(config.Default(), fs, fv)
	assert.True(t, cfg.UseGPU)
	assert.Equal(t, 3, cfg.Workers())
}
