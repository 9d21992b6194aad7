// Unix signal table and disposition control.
//
// This file is compiled on all non-Windows platforms (Linux, macOS, *BSD).
// The table mirrors the classic server set: the five fault signals, the two
// orderly-shutdown signals, and SIGHUP as the log-roll cue.

//go:build !windows

package sigwatch

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Disposition Table
// ///////////////////////////////////////////////

// dispositionTable is the fixed set of recognized signals. Populated once;
// [setup] installs one handler registration per entry.
var dispositionTable = map[os.Signal]Entry{
	syscall.SIGABRT: {Name: "SIGABRT", Class: ClassCrash},
	syscall.SIGFPE:  {Name: "SIGFPE", Class: ClassCrash},
	syscall.SIGHUP:  {Name: "SIGHUP", Class: ClassOperational},
	syscall.SIGILL:  {Name: "SIGILL", Class: ClassCrash},
	syscall.SIGINT:  {Name: "SIGINT", Class: ClassTermination},
	syscall.SIGQUIT: {Name: "SIGQUIT", Class: ClassCrash},
	syscall.SIGSEGV: {Name: "SIGSEGV", Class: ClassCrash},
	syscall.SIGTERM: {Name: "SIGTERM", Class: ClassTermination},
}

// catchable reports whether a handler can be installed for sig. SIGKILL and
// SIGSTOP can never be caught; non-positive values are not real signals.
func catchable(sig os.Signal) bool {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return false
	}
	return s > 0 && s != syscall.SIGKILL && s != syscall.SIGSTOP
}

// ignoreBrokenPipe installs an explicit ignore disposition for SIGPIPE so
// writes to a closed pipe or socket surface as ordinary error returns
// instead of terminating the process. Installed outside the dispatcher's
// own table on purpose; there is nothing to dispatch.
func ignoreBrokenPipe() {
	signal.Ignore(syscall.SIGPIPE)
}

// ///////////////////////////////////////////////
// OS Disposition
// ///////////////////////////////////////////////

// osDisposition is the production restore/redeliver implementation.
type osDisposition struct{}

// Restore resets sig to the OS default disposition.
func (osDisposition) Restore(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return fmt.Errorf("not a POSIX signal: %v", sig)
	}
	signal.Reset(s)
	return nil
}

// Redeliver sends sig to the current process. With the default disposition
// restored first, this produces the signal's native exit status or core
// dump.
func (osDisposition) Redeliver(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return fmt.Errorf("not a POSIX signal: %v", sig)
	}
	if err := syscall.Kill(syscall.Getpid(), s); err != nil {
		return fmt.Errorf("kill self with %v: %w", s, err)
	}
	return nil
}
