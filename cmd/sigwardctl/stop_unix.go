// Unix stop fallback: deliver SIGTERM to the PID from the daemon's PID
// file. The daemon treats a signalled termination exactly like a control
// stop, so both paths converge on the same shutdown gating.

//go:build !windows

package main

import (
	"fmt"
	"syscall"

	"tools.zach/dev/sigward/internal/paths"
)

// signalStop sends SIGTERM to the daemon named by the PID file.
func signalStop(d paths.DataDir) error {
	pid, err := readDaemonPID(d)
	if err != nil {
		return err
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}
