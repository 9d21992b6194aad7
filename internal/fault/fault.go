// Package fault is the daemon's fault-reporting surface: diagnostic
// logging, stack capture, log rolling, and the crash marker consumed by the
// next start's crash reporter.
//
// The signal dispatcher talks only to the [Reporter] interface so tests can
// substitute a recording fake and assert on the exact sequence of calls the
// crash and shutdown paths make.
package fault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/sigward/internal/atomicfile"
	"tools.zach/dev/sigward/internal/buildinfo"
	"tools.zach/dev/sigward/internal/logger"
)

// ///////////////////////////////////////////////
// Reporter Interface
// ///////////////////////////////////////////////

// Reporter is the fault-reporting collaborator the signal dispatcher calls.
// Implementations must be safe for concurrent use.
type Reporter interface {
	// Logf emits one diagnostic record at the given level, tagged with a
	// facility name ("signal", "daemon", "control", ...).
	Logf(level slog.Level, facility, format string, args ...any)

	// PrintStackTrace captures the stacks of all goroutines and records
	// them. Called on the crash path before the signal is re-raised.
	PrintStackTrace()

	// RollLogFiles closes the current log file and starts a new one.
	// Triggered by SIGHUP and by the "roll" control command.
	RollLogFiles() error

	// WriteCrashMarker persists a small record of a crash in progress so the
	// next start can report it. Best effort; failures are swallowed since
	// the process is about to die anyway.
	WriteCrashMarker(signal string)
}

// ///////////////////////////////////////////////
// Crash Marker
// ///////////////////////////////////////////////

// Marker is the JSON document written on the crash path and read back by
// the crash reporter on the following start.
type Marker struct {
	Signal    string    `json:"signal"`
	BuildType string    `json:"build_type"`
	BuildID   string    `json:"build_id"`
	BuildOS   string    `json:"build_os"`
	Time      time.Time `json:"time"`
	DumpFile  string    `json:"dump_file,omitempty"`
}

// ///////////////////////////////////////////////
// SinkReporter
// ///////////////////////////////////////////////

// DefaultDumpPattern matches stack dump files inside the dump directory.
const DefaultDumpPattern = "stack.*.log"

// dumpStampFormat produces lexically sortable, filename-safe timestamps, so
// pruning can delete the oldest dumps by name order alone.
const dumpStampFormat = "20060102-150405.000000000"

// Options configures a [SinkReporter].
type Options struct {
	// DumpDir receives stack dump files. Created on first capture.
	DumpDir string
	// DumpPattern is the doublestar glob matching dump files inside
	// DumpDir. Defaults to [DefaultDumpPattern].
	DumpPattern string
	// MaxDumps is the number of dump files retained after pruning.
	// Zero or negative disables pruning.
	MaxDumps int
	// MarkerPath is where the crash marker is written. Empty disables it.
	MarkerPath string
	// Identity is the build identity stamped into crash markers.
	Identity buildinfo.Identity
}

// SinkReporter implements [Reporter] on top of the daemon logger and its
// rotating sink.
type SinkReporter struct {
	log  *slog.Logger
	sink *logger.Sink
	opts Options

	// now is a test seam for dump file timestamps.
	now func() time.Time

	// mu guards lastDump, set by PrintStackTrace and read by
	// WriteCrashMarker on the crash path.
	mu       sync.Mutex
	lastDump string
}

// NewSinkReporter builds a SinkReporter writing through log, rolling sink.
// sink may be nil, in which case RollLogFiles reports an error.
func NewSinkReporter(log *slog.Logger, sink *logger.Sink, opts Options) *SinkReporter {
	if opts.DumpPattern == "" {
		opts.DumpPattern = DefaultDumpPattern
	}
	return &SinkReporter{log: log, sink: sink, opts: opts, now: time.Now}
}

// Logf emits one diagnostic record tagged with the facility.
func (r *SinkReporter) Logf(level slog.Level, facility, format string, args ...any) {
	r.log.Log(context.Background(), level, fmt.Sprintf(format, args...),
		slog.String("facility", facility))
}

// PrintStackTrace captures all goroutine stacks into a timestamped file in
// the dump directory and logs its location. If the dump file cannot be
// written the trace is logged inline instead, so a crash never goes by
// silently. Old dumps beyond MaxDumps are pruned.
func (r *SinkReporter) PrintStackTrace() {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	trace := buf[:n]

	if r.opts.DumpDir == "" {
		r.log.Error("stack trace", "goroutines", runtime.NumGoroutine(), "trace", string(trace))
		return
	}

	if err := os.MkdirAll(r.opts.DumpDir, 0o755); err != nil {
		r.log.Error("cannot create dump dir, logging trace inline", "error", err)
		r.log.Error("stack trace", "trace", string(trace))
		return
	}

	name := "stack." + r.now().UTC().Format(dumpStampFormat) + ".log"
	path := filepath.Join(r.opts.DumpDir, name)
	if err := os.WriteFile(path, trace, 0o644); err != nil {
		r.log.Error("cannot write stack dump, logging trace inline", "error", err)
		r.log.Error("stack trace", "trace", string(trace))
		return
	}

	r.mu.Lock()
	r.lastDump = path
	r.mu.Unlock()

	r.log.Error("stack trace captured", "file", path, "goroutines", runtime.NumGoroutine())
	r.pruneDumps()
}

// RollLogFiles delegates to the rotating sink.
func (r *SinkReporter) RollLogFiles() error {
	if r.sink == nil {
		return fmt.Errorf("no rotating sink attached")
	}
	return r.sink.Rotate()
}

// WriteCrashMarker writes the crash marker atomically. Best effort: any
// failure is logged and dropped, since the caller is about to re-raise a
// fatal signal.
func (r *SinkReporter) WriteCrashMarker(signal string) {
	if r.opts.MarkerPath == "" {
		return
	}

	r.mu.Lock()
	dump := r.lastDump
	r.mu.Unlock()

	m := Marker{
		Signal:    signal,
		BuildType: r.opts.Identity.Type,
		BuildID:   r.opts.Identity.ID,
		BuildOS:   r.opts.Identity.OS,
		Time:      r.now().UTC(),
		DumpFile:  dump,
	}
	if err := atomicfile.WriteJSON(r.opts.MarkerPath, m, 0o600); err != nil {
		r.log.Error("cannot write crash marker", "error", err)
	}
}

// pruneDumps removes the oldest dump files beyond MaxDumps. Dump names are
// timestamp-ordered, so lexical sort is chronological sort.
func (r *SinkReporter) pruneDumps() {
	if r.opts.MaxDumps <= 0 {
		return
	}

	pattern := filepath.Join(r.opts.DumpDir, r.opts.DumpPattern)
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		r.log.Warn("dump prune glob failed", "pattern", pattern, "error", err)
		return
	}
	if len(matches) <= r.opts.MaxDumps {
		return
	}

	sort.Strings(matches)
	for _, stale := range matches[:len(matches)-r.opts.MaxDumps] {
		if err := os.Remove(stale); err != nil {
			r.log.Warn("cannot remove stale dump", "file", stale, "error", err)
		}
	}
}
