// SPDX-License-Identifier: MIT

package ffcmd

import (
	"fmt"
	"strings"
)

// Error reports a subprocess that could not be started or exited non-zero.
// It carries enough context (argv, exit code, stderr tail) to diagnose the
// failure without re-running the tool.
type Error struct {
	Tool     string   // short tool name ("ffmpeg", "ffprobe")
	Args     []string // full argument vector
	ExitCode int      // -1 when the process never started
	Stderr   []string // last captured stderr lines, oldest first
	Err      error    // underlying error from os/exec
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed (exit %d)", e.Tool, e.ExitCode)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Stderr) > 0 {
		fmt.Fprintf(&b, "; stderr: %s", strings.Join(e.Stderr, " | "))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
