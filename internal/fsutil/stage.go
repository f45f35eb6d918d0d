// SPDX-License-Identifier: MIT

// Package fsutil implements the filesystem discipline of the pipeline:
// scoped acquisition of output paths (temp sibling, promote on success,
// discard on failure) and atomic single-file writes.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutputExists is returned when a destination (or its staging sibling)
// already exists and overwrite was not requested.
var ErrOutputExists = errors.New("output path already exists")

// Stage is a scoped acquisition of a final output path. The external
// encoder writes to TempPath; the final path is never touched until
// Promote. The temp sibling keeps the container extension so tools that
// infer the format from the filename keep working.
type Stage struct {
	final     string
	temp      string
	overwrite bool
	done      bool
}

// NewStage prepares staging for final. It refuses a pre-existing final
// path or stale temp sibling unless overwrite is set; with overwrite, a
// stale temp from an earlier attempt is removed.
func NewStage(final string, overwrite bool) (*Stage, error) {
	if final == "" {
		return nil, errors.New("empty staging path")
	}

	if !overwrite {
		if _, err := os.Lstat(final); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, final)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	temp := TempSibling(final)
	if _, err := os.Lstat(temp); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("%w: stale temp %s", ErrOutputExists, temp)
		}
		if err := os.Remove(temp); err != nil {
			return nil, fmt.Errorf("remove stale temp %s: %w", temp, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return &Stage{final: final, temp: temp, overwrite: overwrite}, nil
}

// TempPath returns the staging path the producer must write to.
func (s *Stage) TempPath() string {
	return s.temp
}

// FinalPath returns the destination path.
func (s *Stage) FinalPath() string {
	return s.final
}

// Promote atomically moves the staged file to the final path. Without
// overwrite it re-checks the destination right before the rename.
func (s *Stage) Promote() error {
	if s.done {
		return errors.New("stage already promoted")
	}
	if !s.overwrite {
		if _, err := os.Lstat(s.final); err == nil {
			return fmt.Errorf("%w: %s", ErrOutputExists, s.final)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(s.temp, s.final); err != nil {
		return fmt.Errorf("promote %s: %w", s.final, err)
	}
	s.done = true
	return nil
}

// Discard removes the staged temp file if it is still present. It is a
// no-op after Promote and is safe to call from a defer on every path.
func (s *Stage) Discard() {
	if s == nil || s.done {
		return
	}
	_ = os.Remove(s.temp)
}

// TempSibling derives the staging name for path, keeping the original
// extension: "out.mp4" becomes "out.tmp.mp4". Extensionless paths get a
// plain ".tmp" suffix.
func TempSibling(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + ".tmp"
	}
	return strings.TrimSuffix(path, ext) + ".tmp" + ext
}
