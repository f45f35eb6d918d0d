// SPDX-License-Identifier: MIT

// Package dispatch distributes frame-processing jobs across a bounded
// pool of workers while preserving ordinal output order. File-mode batch
// dispatch splits a finite job list into contiguous chunks; stream-mode
// dispatch pipelines a live decode stream through the pool and re-imposes
// strict ordinal order behind it.
package dispatch

import (
	"context"
	"fmt"
)

// Transform applies the external face swap to one frame payload. In
// stream mode the payload is a packed bgr24 frame; in file mode it is the
// encoded frame file content. Implementations are assumed pure with no
// ordering contract across calls from different workers.
type Transform interface {
	Apply(ctx context.Context, data []byte) ([]byte, error)
}

// Worker identifies a worker slot handed to the factory.
type Worker struct {
	Index int
	GPU   bool
}

// Factory builds one Transform per worker. The face image and model
// handle are loaded once per worker here, not per job.
type Factory func(ctx context.Context, w Worker) (Transform, error)

// WorkerError reports a fatal transform failure inside a worker. It stops
// the whole run; no partial video is ever produced.
type WorkerError struct {
	Worker  int
	Ordinal int
	Err     error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d failed at frame %d: %v", e.Worker, e.Ordinal, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(ctx context.Context, data []byte) ([]byte, error)

// Apply implements Transform.
func (f TransformFunc) Apply(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}
