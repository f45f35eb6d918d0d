// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapline/swapline/internal/config"
	"github.com/swapline/swapline/internal/dispatch"
	"github.com/swapline/swapline/internal/fsutil"
)

func upperFactory(context.Context, dispatch.Worker) (dispatch.Transform, error) {
	return dispatch.TransformFunc(func(_ context.Context, data []byte) ([]byte, error) {
		return bytes.ToUpper(data), nil
	}), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunMissingFaceIsInputNotFound(t *testing.T) {
	p := New(config.Default(), upperFactory)
	err := p.Run(testContext(t), Request{Face: "/nope/face.png", Source: "/nope/src.mp4"})
	assert.ErrorIs(t, err, ErrInputNotFound)
}

func TestRunMissingSourceIsInputNotFound(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	writeFile(t, face, "face")

	p := New(config.Default(), upperFactory)
	err := p.Run(testContext(t), Request{Face: face, Source: filepath.Join(dir, "missing.mp4")})
	assert.ErrorIs(t, err, ErrInputNotFound)
}

func TestRunRejectsOutputAndTemplateTogether(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	src := filepath.Join(dir, "src.mp4")
	writeFile(t, face, "face")
	writeFile(t, src, "vid")

	p := New(config.Default(), upperFactory)
	err := p.Run(testContext(t), Request{
		Face: face, Source: src,
		Output:         filepath.Join(dir, "a.mp4"),
		OutputTemplate: "{src_bnc}.mp4",
	})
	assert.ErrorContains(t, err, "both")
}

func TestRunRefusesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	src := filepath.Join(dir, "src.png")
	out := filepath.Join(dir, "out.png")
	writeFile(t, face, "face")
	writeFile(t, src, "still")
	writeFile(t, out, "already here")

	p := New(config.Default(), upperFactory)
	err := p.Run(testContext(t), Request{Face: face, Source: src, Output: out})
	assert.ErrorIs(t, err, fsutil.ErrOutputExists)
}

func TestRunSingleImageSwap(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	src := filepath.Join(dir, "src.png")
	out := filepath.Join(dir, "out.png")
	writeFile(t, face, "face")
	writeFile(t, src, "still image payload")

	p := New(config.Default(), upperFactory)
	require.NoError(t, p.Run(testContext(t), Request{Face: face, Source: src, Output: out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "STILL IMAGE PAYLOAD", string(data))

	_, err = os.Stat(fsutil.TempSibling(out))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSingleImageOverwrite(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	src := filepath.Join(dir, "src.png")
	out := filepath.Join(dir, "out.png")
	writeFile(t, face, "face")
	writeFile(t, src, "new")
	writeFile(t, out, "old")

	cfg := config.Default()
	cfg.Overwrite = true
	p := New(cfg, upperFactory)
	require.NoError(t, p.Run(testContext(t), Request{Face: face, Source: src, Output: out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "NEW", string(data))
}

func TestRunSingleImageTransformFailure(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	src := filepath.Join(dir, "src.png")
	writeFile(t, face, "face")
	writeFile(t, src, "still")

	boom := errors.New("no face detected")
	factory := func(context.Context, dispatch.Worker) (dispatch.Transform, error) {
		return dispatch.TransformFunc(func(context.Context, []byte) ([]byte, error) {
			return nil, boom
		}), nil
	}

	p := New(config.Default(), factory)
	err := p.Run(testContext(t), Request{Face: face, Source: src, Output: filepath.Join(dir, "out.png")})

	var werr *dispatch.WorkerError
	require.ErrorAs(t, err, &werr)
	assert.ErrorIs(t, err, boom)
}

func TestRunDirectorySourceStreamNeedsSourceFPS(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	srcDir := filepath.Join(dir, "seq")
	writeFile(t, face, "face")
	require.NoError(t, os.Mkdir(srcDir, 0o755))

	p := New(config.Default(), upperFactory)
	err := p.Run(testContext(t), Request{Face: face, Source: srcDir, Output: filepath.Join(dir, "out.mp4")})
	assert.ErrorIs(t, err, ErrMissingFrameRate)
}

func TestRunDirectorySourceNeedsSourceFPS(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	srcDir := filepath.Join(dir, "seq")
	writeFile(t, face, "face")
	require.NoError(t, os.Mkdir(srcDir, 0o755))

	p := New(config.Default(), upperFactory)
	err := p.Run(testContext(t), Request{
		Face: face, Source: srcDir,
		Output:    filepath.Join(dir, "out.mp4"),
		ImageMode: true,
	})
	assert.ErrorIs(t, err, ErrMissingFrameRate)
}

func TestRunImageCollectionMode(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	srcDir := filepath.Join(dir, "pics")
	swapped := filepath.Join(dir, "swapped")
	writeFile(t, face, "face")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	writeFile(t, filepath.Join(srcDir, "holiday.png"), "one")
	writeFile(t, filepath.Join(srcDir, "party.png"), "two")

	cfg := config.Default()
	cfg.SwappedDir = swapped
	p := New(cfg, upperFactory)

	// No output path: swap every image into the swapped dir, no encode.
	require.NoError(t, p.Run(testContext(t), Request{Face: face, Source: srcDir, ImageMode: true}))

	data, err := os.ReadFile(filepath.Join(swapped, "holiday.png"))
	require.NoError(t, err)
	assert.Equal(t, "ONE", string(data))
	data, err = os.ReadFile(filepath.Join(swapped, "party.png"))
	require.NoError(t, err)
	assert.Equal(t, "TWO", string(data))
}

func TestRunImageCollectionModeResumes(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.png")
	srcDir := filepath.Join(dir, "pics")
	swapped := filepath.Join(dir, "swapped")
	writeFile(t, face, "face")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	require.NoError(t, os.Mkdir(swapped, 0o755))
	writeFile(t, filepath.Join(srcDir, "a.png"), "fresh")
	writeFile(t, filepath.Join(srcDir, "b.png"), "fresh")
	// b is already done; a second run must leave it untouched.
	writeFile(t, filepath.Join(swapped, "b.png"), "done earlier")

	cfg := config.Default()
	cfg.SwappedDir = swapped
	p := New(cfg, upperFactory)
	require.NoError(t, p.Run(testContext(t), Request{Face: face, Source: srcDir, ImageMode: true}))

	data, err := os.ReadFile(filepath.Join(swapped, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "FRESH", string(data))
	data, err = os.ReadFile(filepath.Join(swapped, "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "done earlier", string(data))
}
