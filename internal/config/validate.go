// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects configurations that cannot produce a correct run.
func (c Config) Validate() error {
	var errs []error

	if c.FFmpegPath == "" {
		errs = append(errs, errors.New("ffmpeg path must not be empty"))
	}
	if c.FFprobePath == "" {
		errs = append(errs, errors.New("ffprobe path must not be empty"))
	}
	if c.ParallelCPU < 1 {
		errs = append(errs, fmt.Errorf("parallel_cpu must be >= 1 (got %d)", c.ParallelCPU))
	}
	if c.ParallelGPU < 1 {
		errs = append(errs, fmt.Errorf("parallel_gpu must be >= 1 (got %d)", c.ParallelGPU))
	}
	if c.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("fps_target must be >= 0 (got %g)", c.TargetFPS))
	}
	if c.SourceFPS < 0 {
		errs = append(errs, fmt.Errorf("fps_source must be >= 0 (got %g)", c.SourceFPS))
	}
	if c.CRF < 0 || c.CRF > 51 {
		errs = append(errs, fmt.Errorf("crf must be in [0, 51] (got %d)", c.CRF))
	}
	if c.Preset == "" {
		errs = append(errs, errors.New("preset must not be empty"))
	}
	if c.Format == "" || strings.HasPrefix(c.Format, ".") {
		errs = append(errs, fmt.Errorf("format must be a bare container name (got %q)", c.Format))
	}
	if c.ImageFormat == "" || strings.HasPrefix(c.ImageFormat, ".") {
		errs = append(errs, fmt.Errorf("img_format must be a bare container name (got %q)", c.ImageFormat))
	}
	if c.SuffixIn == "" {
		errs = append(errs, errors.New("suffix_in must not be empty"))
	}
	if c.SuffixOut == "" {
		errs = append(errs, errors.New("suffix_out must not be empty"))
	}
	if c.PadWidth < 1 || c.PadWidth > 12 {
		errs = append(errs, fmt.Errorf("pad_width must be in [1, 12] (got %d)", c.PadWidth))
	}
	if c.KillGrace < 0 {
		errs = append(errs, fmt.Errorf("kill_grace must be >= 0 (got %s)", c.KillGrace))
	}
	if c.WorkDir != "" && c.WorkDirRoot != "" {
		errs = append(errs, errors.New("work_dir and work_dir_root are mutually exclusive"))
	}

	return errors.Join(errs...)
}
