// SPDX-License-Identifier: MIT

// Package frames enumerates and validates frame files on disk and owns the
// ordinal-based naming policy shared by the extractor, the dispatcher and
// the encode sink.
package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var leadingOrdinal = regexp.MustCompile(`^(\d+)(?:[^\d]|$)`)

// Entry is a frame reference: ordinal position plus source path.
// Immutable once created.
type Entry struct {
	Ordinal int
	Path    string
}

// DiscontinuityError reports a frame set whose ordinals are not exactly
// {1..count}. Silent gap-skipping would let the encoder desynchronize the
// output frame rate from source timing, so this is fatal.
type DiscontinuityError struct {
	Ordinals []int
}

func (e *DiscontinuityError) Error() string {
	return fmt.Sprintf("discontinuous frame sequence: got ordinals %v", e.Ordinals)
}

// Scan enumerates the files in dir ending with suffix, ordered by their
// leading ordinal. A matching file without a parseable leading number is a
// fatal input error. With requireContinuous, the ordinals must be exactly
// {1..count}; any gap, duplicate or non-1 start yields a
// *DiscontinuityError carrying the full ordinal list.
func Scan(dir, suffix string, requireContinuous bool) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan frames dir %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), suffix) {
			continue
		}
		m := leadingOrdinal.FindStringSubmatch(de.Name())
		if m == nil {
			return nil, fmt.Errorf("frame file %q has no leading ordinal", de.Name())
		}
		ordinal, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("frame file %q: ordinal out of range: %w", de.Name(), err)
		}
		entries = append(entries, Entry{Ordinal: ordinal, Path: filepath.Join(dir, de.Name())})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Ordinal < entries[j].Ordinal })

	if requireContinuous {
		for i, e := range entries {
			if e.Ordinal != i+1 {
				ordinals := make([]int, len(entries))
				for j, x := range entries {
					ordinals[j] = x.Ordinal
				}
				return nil, &DiscontinuityError{Ordinals: ordinals}
			}
		}
	}

	return entries, nil
}

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".bmp": {},
	".webp": {}, ".tif": {}, ".tiff": {},
}

// ScanImages enumerates a free-form image collection: every image file in
// dir ending with suffix, sorted by name for determinism. No ordinal
// parsing, no continuity requirement, no de-duplication.
func ScanImages(dir, suffix string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan images dir %s: %w", dir, err)
	}

	var paths []string
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), suffix) {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(de.Name()))]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(dir, de.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsImagePath reports whether path has a recognized image extension.
func IsImagePath(path string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(path))]
	return ok
}
