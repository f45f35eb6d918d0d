// SPDX-License-Identifier: MIT

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/swapline/swapline/internal/decode"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/metrics"
)

// StreamOptions configures stream-mode dispatch.
type StreamOptions struct {
	Workers int
	GPU     bool
	// InFlight caps frames admitted but not yet emitted. Zero means
	// 2*Workers. A slot is freed on ordered emit, not on transform
	// completion, so a stalled ordinal stalls admission too and memory
	// stays bounded even under heavy reordering.
	InFlight int
}

// Emit receives transformed frames in strict ordinal order.
type Emit func(frame decode.Frame) error

// Stream pulls frames from src, fans them out across a worker pool, and
// hands them to emit in the exact ordinal order src produced them.
// Workers complete out of order; a reorder buffer owned by the dispatcher
// holds early arrivals until their predecessors have been emitted. The
// first failure anywhere (source, transform, sink) cancels the run.
func Stream(ctx context.Context, opts StreamOptions, src decode.Source, factory Factory, emit Emit) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	logger := log.WithComponentFromContext(ctx, "dispatch")
	logger.Info().Int("workers", workers).Bool("gpu", opts.GPU).Msg("stream dispatch")

	if workers == 1 {
		return streamSequential(ctx, opts, src, factory, emit)
	}

	inFlight := opts.InFlight
	if inFlight <= 0 {
		inFlight = 2 * workers
	}
	if inFlight < workers {
		inFlight = workers
	}

	g, ctx := errgroup.WithContext(ctx)

	// Admission tokens. Acquired by the reader per frame, released by the
	// reorderer on ordered emit.
	tokens := make(chan struct{}, inFlight)
	jobs := make(chan decode.Frame)
	// Buffered to the in-flight bound so workers never block on a result
	// send; the reorderer drains results until the channel closes.
	results := make(chan decode.Frame, inFlight)

	g.Go(func() error {
		defer close(jobs)
		for {
			frame, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			transform, err := factory(ctx, Worker{Index: w, GPU: opts.GPU})
			if err != nil {
				return fmt.Errorf("create transform for worker %d: %w", w, err)
			}
			for frame := range jobs {
				swapped, err := transform.Apply(ctx, frame.Data)
				if err != nil {
					metrics.IncWorkerFailure()
					return &WorkerError{Worker: w, Ordinal: frame.Ordinal, Err: err}
				}
				frame.Data = swapped
				results <- frame
				metrics.IncFramesSwapped("stream", 1)
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		return reorder(results, tokens, emit)
	})

	return g.Wait()
}

// reorder emits frames in strict ordinal order starting at 1. An emit
// failure returns immediately; because results is buffered to the
// in-flight bound, workers can never block on a send, so abandoning the
// channel is safe. A close with ordinals still pending means a worker
// failed upstream and its error wins.
func reorder(results <-chan decode.Frame, tokens <-chan struct{}, emit Emit) error {
	pending := make(map[int]decode.Frame)
	next := 1

	for frame := range results {
		pending[frame.Ordinal] = frame
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := emit(ready); err != nil {
				return err
			}
			<-tokens
			next++
		}
	}
	return nil
}

// streamSequential is the single-instance path: one transform, one
// goroutine, frames emitted as they are produced.
func streamSequential(ctx context.Context, opts StreamOptions, src decode.Source, factory Factory, emit Emit) error {
	transform, err := factory(ctx, Worker{Index: 0, GPU: opts.GPU})
	if err != nil {
		return fmt.Errorf("create transform: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		swapped, err := transform.Apply(ctx, frame.Data)
		if err != nil {
			metrics.IncWorkerFailure()
			return &WorkerError{Worker: 0, Ordinal: frame.Ordinal, Err: err}
		}
		frame.Data = swapped
		if err := emit(frame); err != nil {
			return err
		}
		metrics.IncFramesSwapped("single", 1)
	}
}
