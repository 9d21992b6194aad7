// Windows signal table and disposition control.
//
// This file is compiled only on Windows. Windows does not deliver POSIX
// signals: only [os.Interrupt] (Ctrl+C / CTRL_C_EVENT) reaches the process,
// and the Go runtime also maps CTRL_BREAK_EVENT and console-close events to
// it. The crash class is empty (faults surface as runtime panics there) and
// log rolling happens through the control endpoint instead of SIGHUP.

//go:build windows

package sigwatch

import (
	"fmt"
	"os"
	"os/signal"
)

// ///////////////////////////////////////////////
// Disposition Table
// ///////////////////////////////////////////////

// dispositionTable holds the only signal Windows can deliver.
var dispositionTable = map[os.Signal]Entry{
	os.Interrupt: {Name: "SIGINT", Class: ClassTermination},
}

// catchable reports whether a handler can be installed for sig. On Windows
// everything the runtime can deliver is catchable.
func catchable(sig os.Signal) bool {
	return sig != nil
}

// ignoreBrokenPipe is a no-op: Windows has no SIGPIPE and writes to closed
// pipes already return errors.
func ignoreBrokenPipe() {}

// ///////////////////////////////////////////////
// OS Disposition
// ///////////////////////////////////////////////

// osDisposition is the production restore/redeliver implementation. The
// crash class is empty on Windows, so redelivery is unreachable in normal
// operation; it reports an error so a misrouted call still terminates the
// process through the dispatcher's unconditional-exit path.
type osDisposition struct{}

// Restore resets sig to the default disposition.
func (osDisposition) Restore(sig os.Signal) error {
	signal.Reset(sig)
	return nil
}

// Redeliver is not supported on Windows.
func (osDisposition) Redeliver(sig os.Signal) error {
	return fmt.Errorf("signal redelivery not supported on windows")
}
