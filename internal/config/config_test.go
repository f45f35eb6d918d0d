// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swapline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crf: 23\npreset: slow\nparallel_cpu: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 23, cfg.CRF)
	assert.Equal(t, "slow", cfg.Preset)
	assert.Equal(t, 2, cfg.ParallelCPU)
	// Untouched fields keep defaults.
	assert.Equal(t, "mp4", cfg.Format)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swapline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_option: true\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swapline.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swapline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crf: 23\n"), 0o644))

	t.Setenv("SWAPLINE_CRF", "30")
	t.Setenv("SWAPLINE_GPU", "true")
	t.Setenv("SWAPLINE_KILL_GRACE", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.CRF)
	assert.True(t, cfg.UseGPU)
	assert.Equal(t, 10*time.Second, cfg.KillGrace)
}

func TestEnvInvalidValueFallsBack(t *testing.T) {
	t.Setenv("SWAPLINE_PARALLEL_CPU", "many")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().ParallelCPU, cfg.ParallelCPU)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cpu workers", func(c *Config) { c.ParallelCPU = 0 }},
		{"zero gpu workers", func(c *Config) { c.ParallelGPU = 0 }},
		{"crf out of range", func(c *Config) { c.CRF = 99 }},
		{"dotted format", func(c *Config) { c.Format = ".mp4" }},
		{"empty suffix", func(c *Config) { c.SuffixIn = "" }},
		{"pad width", func(c *Config) { c.PadWidth = 0 }},
		{"negative fps target", func(c *Config) { c.TargetFPS = -1 }},
		{"both work dirs", func(c *Config) { c.WorkDir = "/a"; c.WorkDirRoot = "/b" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWorkers(t *testing.T) {
	cfg := Default()
	cfg.ParallelCPU = 8
	cfg.ParallelGPU = 2
	assert.Equal(t, 8, cfg.Workers())
	cfg.UseGPU = true
	assert.Equal(t, 2, cfg.Workers())
}

func TestPlainContainer(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "mp4", cfg.PlainContainer())
	cfg.PlainFormat = "mkv"
	assert.Equal(t, "mkv", cfg.PlainContainer())
}
