// SPDX-License-Identifier: MIT

package dispatch

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapline/swapline/internal/decode"
)

// fakeSource yields total frames with ordinals 1..total, then EOF or the
// configured failure. It counts how many frames it handed out so tests
// can observe admission backpressure.
type fakeSource struct {
	mu     sync.Mutex
	total  int
	next   int
	failAt int
	err    error
}

func (s *fakeSource) Next() (decode.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if s.failAt > 0 && s.next == s.failAt {
		return decode.Frame{}, s.err
	}
	if s.next > s.total {
		return decode.Frame{}, io.EOF
	}
	return decode.Frame{Ordinal: s.next, Width: 2, Height: 1, Data: []byte{byte(s.next)}}, nil
}

func (s *fakeSource) Close() error { return nil }

func (s *fakeSource) handed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	if n > s.total {
		n = s.total
	}
	return n
}

// orderedCollector records emitted ordinals and fails fast on any
// ordering violation.
type orderedCollector struct {
	mu       sync.Mutex
	ordinals []int
}

func (c *orderedCollector) emit(frame decode.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if want := len(c.ordinals) + 1; frame.Ordinal != want {
		return errors.New("out of order emit")
	}
	c.ordinals = append(c.ordinals, frame.Ordinal)
	return nil
}

func (c *orderedCollector) seen() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.ordinals...)
}

func jitterTransform(context.Context, Worker) (Transform, error) {
	return TransformFunc(func(_ context.Context, data []byte) ([]byte, error) {
		time.Sleep(time.Duration(rand.Intn(4)) * time.Millisecond)
		out := append([]byte(nil), data...)
		out = append(out, 0xFF)
		return out, nil
	}), nil
}

func TestStreamPreservesOrdinalOrder(t *testing.T) {
	src := &fakeSource{total: 50}
	sink := &orderedCollector{}

	err := Stream(testContext(t), StreamOptions{Workers: 4}, src, jitterTransform, sink.emit)
	require.NoError(t, err)

	got := sink.seen()
	require.Len(t, got, 50)
	for i, o := range got {
		assert.Equal(t, i+1, o)
	}
}

func TestStreamAdmissionIsBounded(t *testing.T) {
	src := &fakeSource{total: 12}
	sink := &orderedCollector{}

	// Frame 1 blocks until released, so nothing can be emitted and no
	// token is ever freed. Admission must stall at the in-flight bound
	// plus the one frame the reader holds while waiting for a token.
	release := make(chan struct{})
	factory := func(context.Context, Worker) (Transform, error) {
		return TransformFunc(func(ctx context.Context, data []byte) ([]byte, error) {
			if data[0] == 1 {
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return data, nil
		}), nil
	}

	done := make(chan error, 1)
	go func() {
		done <- Stream(context.Background(), StreamOptions{Workers: 2, InFlight: 4}, src, factory, sink.emit)
	}()

	require.Eventually(t, func() bool { return src.handed() >= 5 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, src.handed(), 5, "admission ran ahead of the in-flight bound")
	assert.Empty(t, sink.seen())

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, sink.seen(), 12)
}

func TestStreamWorkerFailureCancelsRun(t *testing.T) {
	src := &fakeSource{total: 40}
	sink := &orderedCollector{}

	boom := errors.New("swap model crashed")
	factory := func(context.Context, Worker) (Transform, error) {
		return TransformFunc(func(_ context.Context, data []byte) ([]byte, error) {
			if data[0] == 7 {
				return nil, boom
			}
			return data, nil
		}), nil
	}

	err := Stream(testContext(t), StreamOptions{Workers: 4}, src, factory, sink.emit)
	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 7, werr.Ordinal)
	assert.ErrorIs(t, err, boom)

	// Whatever made it out is a contiguous prefix below the failure.
	got := sink.seen()
	assert.Less(t, len(got), 7)
	for i, o := range got {
		assert.Equal(t, i+1, o)
	}
}

func TestStreamSourceFailurePropagates(t *testing.T) {
	readErr := errors.New("decoder died")
	src := &fakeSource{total: 40, failAt: 4, err: readErr}
	sink := &orderedCollector{}

	err := Stream(testContext(t), StreamOptions{Workers: 3}, src, jitterTransform, sink.emit)
	assert.ErrorIs(t, err, readErr)
}

func TestStreamSinkFailurePropagates(t *testing.T) {
	src := &fakeSource{total: 20}
	sinkErr := errors.New("encoder pipe closed")

	var emitted int
	emit := func(decode.Frame) error {
		emitted++
		if emitted == 3 {
			return sinkErr
		}
		return nil
	}

	err := Stream(testContext(t), StreamOptions{Workers: 4}, src, jitterTransform, emit)
	assert.ErrorIs(t, err, sinkErr)
}

func TestStreamSingleWorkerIsSequential(t *testing.T) {
	src := &fakeSource{total: 10}
	sink := &orderedCollector{}

	var created int
	factory := func(ctx context.Context, w Worker) (Transform, error) {
		created++
		assert.Equal(t, 0, w.Index)
		return jitterTransform(ctx, w)
	}

	require.NoError(t, Stream(testContext(t), StreamOptions{Workers: 1}, src, factory, sink.emit))
	assert.Equal(t, 1, created)
	assert.Len(t, sink.seen(), 10)
}

func TestStreamEmptySourceEmitsNothing(t *testing.T) {
	src := &fakeSource{total: 0}
	sink := &orderedCollector{}

	require.NoError(t, Stream(testContext(t), StreamOptions{Workers: 4}, src, jitterTransform, sink.emit))
	assert.Empty(t, sink.seen())
}
