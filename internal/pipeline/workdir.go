// SPDX-License-Identifier: MIT

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/swapline/swapline/internal/config"
	"github.com/swapline/swapline/internal/fsutil"
)

// workDirFor picks the scratch directory for image mode. An explicit
// WorkDir wins; otherwise the directory is named "<output basename>.tmp"
// under WorkDirRoot or, failing that, next to the output. With neither an
// output nor explicit directories there is no work dir at all, which is
// fine as long as frames and swapped dirs are given explicitly.
func workDirFor(cfg config.Config, output string) string {
	if cfg.WorkDir != "" {
		return cfg.WorkDir
	}
	if output == "" {
		return ""
	}
	name := filepath.Base(output) + ".tmp"
	if cfg.WorkDirRoot != "" {
		return filepath.Join(cfg.WorkDirRoot, name)
	}
	return filepath.Join(filepath.Dir(output), name)
}

// scratchName builds the derived per-source directory name, encoding the
// effective extraction rate so different rates never share frames.
func scratchName(kind, source string, fpsUse float64) string {
	rate := "srcfps"
	if fpsUse > 0 {
		rate = fmt.Sprintf("%g", fpsUse)
	}
	return fmt.Sprintf("f_%s__%s__F%s", kind, filepath.Base(source), rate)
}

// framesDirFor resolves the extracted-frames directory. Returns the
// directory plus whether this run derived (and may later clean up) it.
func framesDirFor(cfg config.Config, workDir, source string, fpsUse float64) (string, bool, error) {
	if cfg.FramesDir != "" {
		return cfg.FramesDir, false, nil
	}
	if workDir == "" {
		return "", false, errors.New("no frames dir: one of work dir, work dir root or frames dir required")
	}
	return filepath.Join(workDir, scratchName("in", source, fpsUse)), true, nil
}

// swappedDirFor resolves and creates the swapped-frames directory.
func swappedDirFor(cfg config.Config, workDir, source string, fpsUse float64) (string, bool, error) {
	if cfg.SwappedDir != "" {
		// An explicit dir gets no parent creation slack.
		if err := fsutil.MakeDirBounded(cfg.SwappedDir, 1); err != nil {
			return "", false, err
		}
		return cfg.SwappedDir, false, nil
	}
	if workDir == "" {
		return "", false, errors.New("no swapped dir: one of work dir, work dir root or swapped dir required")
	}
	dir := filepath.Join(workDir, scratchName("swapped", source, fpsUse))
	if err := fsutil.MakeDirBounded(dir, 2); err != nil {
		return "", false, err
	}
	return dir, true, nil
}
