// Package sigwatch installs the daemon's signal handlers and coordinates
// what each class of signal does to the process.
//
// Three classes exist:
//
//   - crash (SIGABRT, SIGFPE, SIGILL, SIGQUIT, SIGSEGV): emit a diagnostic
//     with the build identity, capture stacks, then restore the default
//     disposition and re-raise the same signal so the OS default action
//     (core dump, exit status) is preserved for supervisors and tooling.
//   - termination (SIGINT, SIGTERM): before startup completes, exit 0
//     immediately; afterwards, release the lifecycle gate so the main
//     goroutine runs graceful shutdown. The handler tears nothing down.
//   - operational (SIGHUP): roll the log files. No lifecycle effect.
//
// Go's runtime delivers signals to an ordinary goroutine over a channel, so
// unlike a C handler this code runs outside any async-signal context and may
// log and allocate freely. The dispatch loop below is that delivery
// goroutine.
package sigwatch

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"tools.zach/dev/sigward/internal/buildinfo"
	"tools.zach/dev/sigward/internal/fault"
	"tools.zach/dev/sigward/internal/lifecycle"
	"tools.zach/dev/sigward/internal/logger"
)

// ///////////////////////////////////////////////
// Classification
// ///////////////////////////////////////////////

// Class is the handling category of a recognized signal.
type Class int

const (
	// ClassCrash ends in the OS default action after diagnostics; never
	// recovered from.
	ClassCrash Class = iota
	// ClassTermination requests orderly shutdown through the lifecycle gate.
	ClassTermination
	// ClassOperational triggers a side effect (log roll) with no lifecycle
	// effect.
	ClassOperational
)

// String returns the class name for diagnostics.
func (c Class) String() string {
	switch c {
	case ClassCrash:
		return "crash"
	case ClassTermination:
		return "termination"
	case ClassOperational:
		return "operational"
	default:
		return "unknown"
	}
}

// Entry is one row of the signal disposition table: the signal's display
// name and its handling class.
type Entry struct {
	Name  string
	Class Class
}

// facility tags every record this package emits.
const facility = "signal"

// redeliverFailedExit is the status used when the default disposition
// cannot be restored or the signal cannot be re-raised. Mirrors an _exit(-1).
const redeliverFailedExit = 255

// ///////////////////////////////////////////////
// Seams
// ///////////////////////////////////////////////

// disposition abstracts the restore-and-redeliver half of the crash
// protocol so tests can observe both steps without the process dying.
type disposition interface {
	// Restore resets sig to the OS default disposition.
	Restore(sig os.Signal) error
	// Redeliver sends sig to the current process.
	Redeliver(sig os.Signal) error
}

type notifyFunc func(c chan<- os.Signal, sigs ...os.Signal)
type ignoredFunc func(sig os.Signal) bool
type exitFunc func(code int)

// ///////////////////////////////////////////////
// Dispatcher
// ///////////////////////////////////////////////

// Dispatcher owns the signal channel and the goroutine draining it. One per
// process; construct with [Setup].
type Dispatcher struct {
	lc    *lifecycle.Context
	rep   fault.Reporter
	ident buildinfo.Identity
	table map[os.Signal]Entry

	sigC chan os.Signal
	done chan struct{}

	disp disposition
	exit exitFunc

	stopOnce sync.Once
}

// Options configures [Setup].
type Options struct {
	// Lifecycle is the process lifecycle context whose gate termination
	// signals release.
	Lifecycle *lifecycle.Context
	// Reporter receives diagnostics, stack captures, and roll requests.
	Reporter fault.Reporter
	// Identity is stamped into crash diagnostics.
	Identity buildinfo.Identity
}

// Setup installs handlers for every signal in the platform disposition
// table, suppresses the default broken-pipe disposition so writes to closed
// pipes surface as I/O errors, and starts the dispatch goroutine.
//
// A signal in the table that can never be caught is a fatal setup
// condition: Setup returns an error naming it, nothing is installed, and
// the caller must abort startup. This is not retried. A pre-existing ignore
// disposition on a signal is surfaced as a warning only; some environments
// legitimately pre-install dispositions and the report is not reliable
// everywhere, so nothing is inferred from it.
//
// Call exactly once per process.
func Setup(opts Options) (*Dispatcher, error) {
	return setup(opts, dispositionTable, signal.Notify, signal.Ignored, osDisposition{}, os.Exit)
}

// setup is [Setup] with every OS seam injectable.
func setup(opts Options, table map[os.Signal]Entry, notify notifyFunc,
	ignored ignoredFunc, disp disposition, exit exitFunc) (*Dispatcher, error) {

	d := &Dispatcher{
		lc:    opts.Lifecycle,
		rep:   opts.Reporter,
		ident: opts.Identity,
		table: table,
		sigC:  make(chan os.Signal, len(table)),
		done:  make(chan struct{}),
		disp:  disp,
		exit:  exit,
	}

	// Validate the whole table before installing anything, so a bad entry
	// cannot leave a half-registered process behind.
	sigs := make([]os.Signal, 0, len(table))
	for sig, entry := range table {
		if !catchable(sig) {
			return nil, fmt.Errorf("cannot register handler for signal %s (%v)", entry.Name, sig)
		}
		sigs = append(sigs, sig)
	}

	for _, sig := range sigs {
		if ignored(sig) {
			d.rep.Logf(slog.LevelWarn, facility,
				"found unexpected prior disposition for %s", d.table[sig].Name)
		}
	}

	notify(d.sigC, sigs...)
	ignoreBrokenPipe()

	go d.run()
	return d, nil
}

// Stop unregisters the handlers and ends the dispatch goroutine. Only used
// by tests; the production dispatcher lives until the process exits.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		signal.Stop(d.sigC)
		close(d.done)
	})
}

// run is the dispatch loop: the watcher goroutine that performs the real
// work for each delivered signal.
func (d *Dispatcher) run() {
	for {
		select {
		case sig := <-d.sigC:
			d.dispatch(sig)
		case <-d.done:
			return
		}
	}
}

// dispatch routes one delivered signal to its class handler.
func (d *Dispatcher) dispatch(sig os.Signal) {
	entry, ok := d.table[sig]
	if !ok {
		// Not in the table; only reachable if the OS delivers something we
		// never registered for.
		d.rep.Logf(slog.LevelWarn, facility, "ignoring unregistered signal %v", sig)
		return
	}

	switch entry.Class {
	case ClassCrash:
		d.handleCrash(sig, entry.Name)
	case ClassTermination:
		d.handleTermination(entry.Name)
	case ClassOperational:
		d.handleHangup(entry.Name)
	}
}

// ///////////////////////////////////////////////
// Crash Path
// ///////////////////////////////////////////////

// handleCrash runs the two-phase crash protocol: capture (diagnostic, stack
// trace, crash marker), then restore-and-redeliver so the OS default action
// ends the process with the signal's native exit semantics. If either the
// restore or the redelivery fails, the process terminates immediately and
// unconditionally rather than risk looping on the custom handler.
func (d *Dispatcher) handleCrash(sig os.Signal, name string) {
	// Phase 1: capture.
	d.rep.Logf(logger.LevelFail, facility, "%s received, aborting %s build %s os %s",
		name, d.ident.Type, d.ident.ID, d.ident.OS)
	d.rep.PrintStackTrace()
	d.rep.WriteCrashMarker(name)

	// Phase 2: restore and redeliver.
	if err := d.disp.Restore(sig); err != nil {
		d.rep.Logf(slog.LevelWarn, facility,
			"could not restore default disposition for %s: %v", name, err)
		d.exit(redeliverFailedExit)
		return
	}
	if err := d.disp.Redeliver(sig); err != nil {
		d.rep.Logf(slog.LevelWarn, facility,
			"could not redeliver %s: %v", name, err)
		d.exit(redeliverFailedExit)
		return
	}
}

// ///////////////////////////////////////////////
// Termination Path
// ///////////////////////////////////////////////

// handleTermination processes an orderly shutdown request. Before startup
// completes, partially initialized subsystems must not be torn down through
// the normal path, so the process exits 0 immediately and the gate is never
// touched. Afterwards the gate is released (idempotently) and the main
// goroutine performs all teardown.
func (d *Dispatcher) handleTermination(name string) {
	d.rep.Logf(slog.LevelWarn, facility, "%s received, shutting down", name)

	if !d.lc.StartupComplete() {
		d.rep.Logf(slog.LevelWarn, facility, "startup was not complete, exiting immediately")
		d.exit(0)
		return
	}

	d.lc.Release()
}

// RequestShutdown routes an out-of-band shutdown request (the control
// endpoint's "stop" command) through the same gating as a termination
// signal.
func (d *Dispatcher) RequestShutdown(reason string) {
	d.handleTermination(reason)
}

// ///////////////////////////////////////////////
// Operational Path
// ///////////////////////////////////////////////

// handleHangup rolls the log files. No gate, no flag, no crash semantics.
func (d *Dispatcher) handleHangup(name string) {
	d.rep.Logf(slog.LevelInfo, facility, "%s received, rolling log", name)

	if err := d.rep.RollLogFiles(); err != nil {
		d.rep.Logf(slog.LevelWarn, facility, "log roll failed: %v", err)
	}
}
