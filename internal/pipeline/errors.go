// SPDX-License-Identifier: MIT

package pipeline

import "errors"

// Sentinel errors of the orchestration layer. Output pre-existence is
// fsutil.ErrOutputExists; worker failures are dispatch.WorkerError;
// subprocess failures are ffcmd.Error.
var (
	// ErrInputNotFound reports a missing face, source or frame input.
	ErrInputNotFound = errors.New("input path not found")

	// ErrMissingFrameRate reports a source with no derivable frame rate,
	// typically an image-sequence directory without an explicit source fps.
	ErrMissingFrameRate = errors.New("source frame rate unknown, explicit source fps required")
)
