// SPDX-License-Identifier: MIT

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/swapline/swapline/internal/resume"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func upperTransform(context.Context, Worker) (Transform, error) {
	return TransformFunc(func(_ context.Context, data []byte) ([]byte, error) {
		return bytes.ToUpper(data), nil
	}), nil
}

func makeJobs(t *testing.T, dir string, n int) []resume.Job {
	t.Helper()
	jobs := make([]resume.Job, 0, n)
	for i := 1; i <= n; i++ {
		in := filepath.Join(dir, fmt.Sprintf("%d.in", i))
		require.NoError(t, os.WriteFile(in, []byte(fmt.Sprintf("frame-%d", i)), 0o644))
		jobs = append(jobs, resume.Job{
			Ordinal: i,
			Input:   in,
			Output:  filepath.Join(dir, fmt.Sprintf("%d.out", i)),
		})
	}
	return jobs
}

func TestBatchProcessesEveryJob(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(t, dir, 7)

	err := Batch(testContext(t), BatchOptions{Workers: 3}, jobs, upperTransform)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%d.out", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("FRAME-%d", i), string(data))
	}
}

func TestBatchSingleWorkerUsesOneTransform(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(t, dir, 4)

	var created int
	factory := func(ctx context.Context, w Worker) (Transform, error) {
		created++
		return upperTransform(ctx, w)
	}

	require.NoError(t, Batch(testContext(t), BatchOptions{Workers: 1}, jobs, factory))
	assert.Equal(t, 1, created)
}

func TestBatchClampsWorkersToJobCount(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(t, dir, 2)

	var mu sync.Mutex
	var created []int
	factory := func(ctx context.Context, w Worker) (Transform, error) {
		mu.Lock()
		created = append(created, w.Index)
		mu.Unlock()
		return upperTransform(ctx, w)
	}

	require.NoError(t, Batch(testContext(t), BatchOptions{Workers: 8}, jobs, factory))
	assert.Len(t, created, 2)
}

func TestBatchTransformFailureIsWorkerError(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(t, dir, 6)

	boom := errors.New("model rejected frame")
	factory := func(context.Context, Worker) (Transform, error) {
		return TransformFunc(func(_ context.Context, data []byte) ([]byte, error) {
			if bytes.HasSuffix(data, []byte("-4")) {
				return nil, boom
			}
			return data, nil
		}), nil
	}

	err := Batch(testContext(t), BatchOptions{Workers: 2}, jobs, factory)
	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 4, werr.Ordinal)
	assert.ErrorIs(t, err, boom)

	// The failing frame left no output behind.
	_, statErr := os.Stat(filepath.Join(dir, "4.out"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBatchFactoryFailureAborts(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(t, dir, 4)

	factory := func(_ context.Context, w Worker) (Transform, error) {
		if w.Index == 1 {
			return nil, errors.New("no gpu context")
		}
		return upperTransform(context.Background(), w)
	}

	err := Batch(testContext(t), BatchOptions{Workers: 2}, jobs, factory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker 1")
}

func TestBatchEmptyJobListIsNoop(t *testing.T) {
	called := false
	factory := func(context.Context, Worker) (Transform, error) {
		called = true
		return nil, errors.New("unreachable")
	}
	require.NoError(t, Batch(testContext(t), BatchOptions{Workers: 4}, nil, factory))
	assert.False(t, called)
}

func TestSplitChunksContiguousAndComplete(t *testing.T) {
	jobs := make([]resume.Job, 10)
	for i := range jobs {
		jobs[i].Ordinal = i + 1
	}

	chunks := splitChunks(jobs, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 4)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 3)

	// Concatenation restores the original order.
	var got []int
	for _, c := range chunks {
		for _, j := range c {
			got = append(got, j.Ordinal)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}
