// SPDX-License-Identifier: MIT

// Package resume splits planned frame work into already-done and todo
// halves based on pre-existing output artifacts, making interrupted runs
// safe to re-run without redoing completed frames.
package resume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swapline/swapline/internal/frames"
)

// Job is a unit of file-based dispatch work: the input frame plus the
// deterministic output path derived from it.
type Job struct {
	Ordinal int
	Input   string
	Output  string
}

// Partition is the resumability split. All is the disjoint union of Todo
// and Done. Membership in Done is a snapshot of output existence at
// partition time, not live-tracked.
type Partition struct {
	All  []Job
	Todo []Job
	Done []Job
}

// Plan derives output paths for the given input frames and partitions them
// by output pre-existence. The input-to-output mapping is deterministic so
// that re-running after a crash reconstructs the same done set.
func Plan(entries []frames.Entry, outDir, suffixIn, suffixOut string) (Partition, error) {
	if len(entries) == 0 {
		return Partition{}, errors.New("no input frames to partition")
	}

	var p Partition
	p.All = make([]Job, 0, len(entries))
	for _, e := range entries {
		job := Job{
			Ordinal: e.Ordinal,
			Input:   e.Path,
			Output:  filepath.Join(outDir, frames.OutputName(filepath.Base(e.Path), suffixIn, suffixOut)),
		}
		p.All = append(p.All, job)

		if _, err := os.Lstat(job.Output); err == nil {
			p.Done = append(p.Done, job)
		} else if errors.Is(err, os.ErrNotExist) {
			p.Todo = append(p.Todo, job)
		} else {
			return Partition{}, fmt.Errorf("stat output %s: %w", job.Output, err)
		}
	}
	return p, nil
}

// RedoPolicy controls forced re-processing of already-done outputs. The
// two flags compose: Partial fires on a partially complete set, Completed
// on a fully complete one. Either way only output artifacts are deleted,
// never inputs, and a failed delete aborts loudly.
type RedoPolicy struct {
	Partial   bool // any done but not all: redo everything
	Completed bool // all done: redo everything
}

// Apply enforces the redo policy, deleting done outputs where it fires and
// returning the updated partition.
func (p Partition) Apply(policy RedoPolicy) (Partition, error) {
	redo := false
	switch {
	case policy.Partial && len(p.Done) > 0 && len(p.Todo) > 0:
		redo = true
	case policy.Completed && len(p.Todo) == 0 && len(p.Done) > 0:
		redo = true
	}
	if !redo {
		return p, nil
	}

	for _, job := range p.Done {
		if err := os.Remove(job.Output); err != nil {
			return Partition{}, fmt.Errorf("redo: delete output %s: %w", job.Output, err)
		}
	}

	return Partition{All: p.All, Todo: p.All, Done: nil}, nil
}
