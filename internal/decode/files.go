// SPDX-License-Identifier: MIT

package decode

import (
	"fmt"
	"image"
	_ "image/jpeg" // frame file decoders
	_ "image/png"
	"io"
	"os"

	"github.com/swapline/swapline/internal/frames"
	"github.com/swapline/swapline/internal/metrics"
)

// FileSource streams raw frames from pre-extracted frame files, decoding
// each image into the same packed bgr24 layout the subprocess source
// produces. Frames are yielded in the indexed order.
type FileSource struct {
	entries []frames.Entry
	pos     int
}

// OpenFiles returns a source over the given ordered frame entries.
func OpenFiles(entries []frames.Entry) *FileSource {
	return &FileSource{entries: entries}
}

// Next decodes the next frame file. Returns io.EOF after the last entry.
func (s *FileSource) Next() (Frame, error) {
	if s.pos >= len(s.entries) {
		return Frame{}, io.EOF
	}
	entry := s.entries[s.pos]
	s.pos++

	f, err := os.Open(entry.Path) // #nosec G304 -- indexed frame file
	if err != nil {
		return Frame{}, fmt.Errorf("open frame %d: %w", entry.Ordinal, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame %d (%s): %w", entry.Ordinal, entry.Path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]byte, width*height*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data[i] = byte(b >> 8)
			data[i+1] = byte(g >> 8)
			data[i+2] = byte(r >> 8)
			i += 3
		}
	}

	metrics.IncFramesDecoded()
	return Frame{Ordinal: entry.Ordinal, Width: width, Height: height, Data: data}, nil
}

// Close is a no-op; file handles are closed per frame.
func (s *FileSource) Close() error {
	return nil
}

// ProbeImageSize reads just the image header of path and returns its
// pixel geometry without decoding the payload.
func ProbeImageSize(path string) (width, height int, err error) {
	f, err := os.Open(path) // #nosec G304 -- indexed frame file
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("probe image %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
