// SPDX-License-Identifier: MIT

package dispatch

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/swapline/swapline/internal/fsutil"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/metrics"
	"github.com/swapline/swapline/internal/resume"
)

// BatchOptions configures file-mode dispatch.
type BatchOptions struct {
	Workers int
	GPU     bool
}

// Batch processes the job list across Workers contiguous chunks. Each
// worker owns its chunk end to end: read input, transform, write output
// atomically. There is no cross-worker rebalancing; per-frame cost is
// assumed roughly uniform. A single-worker configuration is processed
// inline without a pool.
func Batch(ctx context.Context, opts BatchOptions, jobs []resume.Job, factory Factory) error {
	if len(jobs) == 0 {
		return nil
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	logger := log.WithComponentFromContext(ctx, "dispatch")
	logger.Info().Int("jobs", len(jobs)).Int("workers", workers).Bool("gpu", opts.GPU).Msg("batch dispatch")

	if workers == 1 {
		// Single-instance mode: no pool, no frame copies across goroutines.
		transform, err := factory(ctx, Worker{Index: 0, GPU: opts.GPU})
		if err != nil {
			return fmt.Errorf("create transform: %w", err)
		}
		return runChunk(ctx, 0, "single", jobs, transform)
	}

	g, ctx := errgroup.WithContext(ctx)
	for w, chunk := range splitChunks(jobs, workers) {
		w, chunk := w, chunk
		g.Go(func() error {
			transform, err := factory(ctx, Worker{Index: w, GPU: opts.GPU})
			if err != nil {
				return fmt.Errorf("create transform for worker %d: %w", w, err)
			}
			return runChunk(ctx, w, "batch", chunk, transform)
		})
	}
	return g.Wait()
}

// splitChunks partitions jobs into at most n contiguous, roughly
// equal-size chunks.
func splitChunks(jobs []resume.Job, n int) [][]resume.Job {
	chunks := make([][]resume.Job, 0, n)
	base := len(jobs) / n
	rem := len(jobs) % n

	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		chunks = append(chunks, jobs[start:start+size])
		start += size
	}
	return chunks
}

func runChunk(ctx context.Context, worker int, mode string, chunk []resume.Job, transform Transform) error {
	for _, job := range chunk {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(job.Input) // #nosec G304 -- partitioned frame path
		if err != nil {
			return fmt.Errorf("read frame %d: %w", job.Ordinal, err)
		}

		swapped, err := transform.Apply(ctx, data)
		if err != nil {
			metrics.IncWorkerFailure()
			return &WorkerError{Worker: worker, Ordinal: job.Ordinal, Err: err}
		}

		// Atomic at single-frame granularity: a killed worker never
		// leaves a half-written output claimed as done on resume.
		if err := fsutil.WriteFileAtomic(job.Output, swapped, 0o644); err != nil {
			return err
		}
		metrics.IncFramesSwapped(mode, 1)
	}
	return nil
}
