// SPDX-License-Identifier: MIT

package procgroup

import (
	"os/exec"
	"syscall"
	"time"
)

// Terminate gracefully stops a process group: SIGTERM, wait for the exit
// result on waitCh up to grace, then SIGKILL and drain waitCh. It consumes
// and returns the error from waitCh and is safe to call on nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}

	// A finished process makes these kills harmless no-ops (ESRCH).
	_ = Kill(cmd, syscall.SIGTERM)

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
		_ = Kill(cmd, syscall.SIGKILL)
		// SIGKILL frees a blocked Wait; always drain.
		return <-waitCh
	}
}
