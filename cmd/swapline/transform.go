// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/swapline/swapline/internal/dispatch"
	"github.com/swapline/swapline/internal/ffcmd"
	"github.com/swapline/swapline/internal/log"
)

// execTransform shells out to the swap tool once per frame: the frame
// payload goes to the tool's stdin, the swapped payload comes back on
// stdout. A non-zero exit fails the frame, and with it the run.
type execTransform struct {
	path  string
	args  []string
	grace time.Duration
}

func (t *execTransform) Apply(ctx context.Context, data []byte) ([]byte, error) {
	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool:   "swap",
		Path:   t.path,
		Args:   t.args,
		Grace:  t.grace,
		Stdin:  true,
		Stdout: true,
	})
	if err != nil {
		return nil, err
	}

	// Feed stdin concurrently; the tool may interleave reading and
	// writing, and a full pipe in either direction must not deadlock us.
	var writeErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := proc.Stdin().Write(data); err != nil {
			writeErr = err
		}
		_ = proc.Stdin().Close()
	}()

	out, readErr := io.ReadAll(proc.Stdout())
	wg.Wait()

	if err := proc.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, fmt.Errorf("read swap output: %w", readErr)
	}
	if writeErr != nil {
		return nil, fmt.Errorf("write swap input: %w", writeErr)
	}
	return out, nil
}

// newFactory builds the per-worker transform factory. Without a swap
// command the frames pass through unchanged, which is only useful for
// exercising the pipeline plumbing itself.
func newFactory(swapCmd string, swapArgs []string, face string, grace time.Duration) dispatch.Factory {
	return func(ctx context.Context, w dispatch.Worker) (dispatch.Transform, error) {
		logger := log.WithComponentFromContext(ctx, "swap")
		if swapCmd == "" {
			logger.Warn().Int("worker", w.Index).Msg("no swap command configured, frames pass through unchanged")
			return dispatch.TransformFunc(func(_ context.Context, data []byte) ([]byte, error) {
				return data, nil
			}), nil
		}

		args := append([]string{"--face", face}, swapArgs...)
		if w.GPU {
			args = append(args, "--gpu")
		}
		logger.Debug().Int("worker", w.Index).Str("cmd", swapCmd).Msg("swap worker ready")
		return &execTransform{path: swapCmd, args: args, grace: grace}, nil
	}
}
