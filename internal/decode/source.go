// SPDX-License-Identifier: MIT

// Package decode produces lazy, ordered sequences of raw frames, either
// live from a decoder subprocess pipe or from pre-extracted frame files.
// Consumption order always equals source temporal order.
package decode

import "fmt"

// Frame is a single decoded image: Width*Height*3 bytes, row-major,
// interleaved 8-bit BGR. A frame is owned by whichever stage currently
// holds it and is never shared across stages.
type Frame struct {
	Ordinal int // 1-based position in presentation order
	Width   int
	Height  int
	Data    []byte
}

// Size returns the expected byte length of the frame payload.
func (f Frame) Size() int {
	return f.Width * f.Height * 3
}

// Source is an ordered raw-frame stream. Next returns io.EOF after the
// last frame; Close is idempotent and must be called on every exit path.
type Source interface {
	Next() (Frame, error)
	Close() error
}

// TruncatedStreamError reports a decoder that stopped mid-frame: the read
// ended before a full Width*Height*3 payload without a clean EOF.
type TruncatedStreamError struct {
	Ordinal int
	Got     int
	Want    int
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("truncated frame stream at ordinal %d: got %d of %d bytes", e.Ordinal, e.Got, e.Want)
}
