// SPDX-License-Identifier: MIT

package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to path with atomic + durable semantics:
// temp file in the same directory, fsync, rename. A killed writer never
// leaves a half-written file that a later resumability check would count
// as done.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := renameio.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	return nil
}

// MakeDirBounded creates dir, allowing at most the last maxParents path
// components to be missing. The ancestor maxParents levels up must already
// exist; this guards against a typo in a work-dir root silently creating a
// deep tree.
func MakeDirBounded(dir string, maxParents int) error {
	if maxParents < 1 {
		return fmt.Errorf("maxParents must be >= 1 (got %d)", maxParents)
	}

	mustExist := dir
	for i := 0; i < maxParents; i++ {
		mustExist = filepath.Dir(mustExist)
	}
	if _, err := os.Stat(mustExist); err != nil {
		return fmt.Errorf("parent dir not found for %s (bound %d): %w", dir, maxParents, err)
	}

	// #nosec G301 -- shared frame directories
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// IsRegularFile reports an error unless path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
