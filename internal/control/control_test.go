package control

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"tools.zach/dev/sigward/internal/lifecycle"
	"tools.zach/dev/sigward/internal/paths"
)

// fakeReporter records which diagnostics were invoked.
type fakeReporter struct {
	mu      sync.Mutex
	rolls   int
	dumps   int
	rollErr error
}

func (f *fakeReporter) Logf(level slog.Level, facility, format string, args ...any) {}

func (f *fakeReporter) PrintStackTrace() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dumps++
}

func (f *fakeReporter) RollLogFiles() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolls++
	return f.rollErr
}

func (f *fakeReporter) WriteCrashMarker(signal string) {}

// fakeStopper records shutdown requests.
type fakeStopper struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeStopper) RequestShutdown(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

type harness struct {
	d       paths.DataDir
	rep     *fakeReporter
	lc      *lifecycle.Context
	stopper *fakeStopper
	srv     *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		d:       paths.DataDir{Root: t.TempDir()},
		rep:     &fakeReporter{},
		lc:      lifecycle.New(),
		stopper: &fakeStopper{},
	}
	srv, err := NewServer(h.d, h.rep, h.lc, h.stopper)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	h.srv = srv
	t.Cleanup(func() { srv.Close() })
	return h
}

func TestRollCommand(t *testing.T) {
	h := newHarness(t)

	resp, err := Send(h.d, CmdRoll)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp != "ok rolled" {
		t.Errorf("response = %q", resp)
	}
	if h.rep.rolls != 1 {
		t.Errorf("rolls = %d, want 1", h.rep.rolls)
	}
}

func TestRollCommandReportsError(t *testing.T) {
	h := newHarness(t)
	h.rep.rollErr = errors.New("disk full")

	resp, err := Send(h.d, CmdRoll)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.HasPrefix(resp, "err ") || !strings.Contains(resp, "disk full") {
		t.Errorf("response = %q, want err with cause", resp)
	}
}

func TestDumpCommand(t *testing.T) {
	h := newHarness(t)

	resp, err := Send(h.d, CmdDump)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp != "ok dumped" {
		t.Errorf("response = %q", resp)
	}
	if h.rep.dumps != 1 {
		t.Errorf("dumps = %d, want 1", h.rep.dumps)
	}
}

func TestStatusTracksLifecycle(t *testing.T) {
	h := newHarness(t)

	if resp, _ := Send(h.d, CmdStatus); resp != "ok starting" {
		t.Errorf("before startup: %q", resp)
	}

	h.lc.MarkStartupComplete()
	if resp, _ := Send(h.d, CmdStatus); resp != "ok running" {
		t.Errorf("after startup: %q", resp)
	}

	h.lc.Release()
	if resp, _ := Send(h.d, CmdStatus); resp != "ok stopping" {
		t.Errorf("after release: %q", resp)
	}
}

func TestStopCommandRequestsShutdown(t *testing.T) {
	h := newHarness(t)

	resp, err := Send(h.d, CmdStop)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp != "ok stopping" {
		t.Errorf("response = %q", resp)
	}

	h.stopper.mu.Lock()
	defer h.stopper.mu.Unlock()
	if len(h.stopper.reasons) != 1 || h.stopper.reasons[0] != "control stop" {
		t.Errorf("shutdown requests = %v", h.stopper.reasons)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)

	resp, err := Send(h.d, "frobnicate")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.HasPrefix(resp, "err unknown command") {
		t.Errorf("response = %q", resp)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t)

	if err := h.srv.Close(); err != nil {
		t.Errorf("first Close = %v", err)
	}
	if err := h.srv.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}

	if _, err := Send(h.d, CmdStatus); err == nil {
		t.Error("Send after Close should fail")
	}
}
