// Unix-specific tests: the production disposition table and the fatal
// setup path for a signal that can never be registered.

//go:build !windows

package sigwatch

import (
	"os"
	"strings"
	"syscall"
	"testing"

	"tools.zach/dev/sigward/internal/lifecycle"
)

// ///////////////////////////////////////////////
// Disposition Table
// ///////////////////////////////////////////////

func TestDispositionTableClasses(t *testing.T) {
	tests := []struct {
		sig   syscall.Signal
		name  string
		class Class
	}{
		{syscall.SIGABRT, "SIGABRT", ClassCrash},
		{syscall.SIGFPE, "SIGFPE", ClassCrash},
		{syscall.SIGHUP, "SIGHUP", ClassOperational},
		{syscall.SIGILL, "SIGILL", ClassCrash},
		{syscall.SIGINT, "SIGINT", ClassTermination},
		{syscall.SIGQUIT, "SIGQUIT", ClassCrash},
		{syscall.SIGSEGV, "SIGSEGV", ClassCrash},
		{syscall.SIGTERM, "SIGTERM", ClassTermination},
	}

	if len(dispositionTable) != len(tests) {
		t.Errorf("table has %d entries, want %d", len(dispositionTable), len(tests))
	}
	for _, tt := range tests {
		entry, ok := dispositionTable[tt.sig]
		if !ok {
			t.Errorf("%s missing from table", tt.name)
			continue
		}
		if entry.Name != tt.name || entry.Class != tt.class {
			t.Errorf("%s = %+v, want {%s %v}", tt.name, entry, tt.name, tt.class)
		}
	}
}

func TestCatchable(t *testing.T) {
	if catchable(syscall.SIGKILL) {
		t.Errorf("SIGKILL reported catchable")
	}
	if catchable(syscall.SIGSTOP) {
		t.Errorf("SIGSTOP reported catchable")
	}
	if catchable(syscall.Signal(0)) {
		t.Errorf("signal 0 reported catchable")
	}
	if !catchable(syscall.SIGTERM) {
		t.Errorf("SIGTERM reported uncatchable")
	}
}

// ///////////////////////////////////////////////
// Fatal Setup
// ///////////////////////////////////////////////

func TestSetupFailsOnUnregisterableSignal(t *testing.T) {
	badTable := map[os.Signal]Entry{
		syscall.SIGTERM: {Name: "SIGTERM", Class: ClassTermination},
		syscall.SIGKILL: {Name: "SIGKILL", Class: ClassCrash},
	}

	var notified bool
	rep := &fakeReporter{}
	_, err := setup(Options{Lifecycle: lifecycle.New(), Reporter: rep}, badTable,
		func(chan<- os.Signal, ...os.Signal) { notified = true },
		func(os.Signal) bool { return false },
		&fakeDisposition{}, func(int) {})

	if err == nil {
		t.Fatal("expected setup to fail for SIGKILL")
	}
	if !strings.Contains(err.Error(), "SIGKILL") {
		t.Errorf("error should name the failing signal: %v", err)
	}
	// Nothing may be installed when any entry is invalid.
	if notified {
		t.Errorf("handlers were installed despite fatal setup error")
	}
}
