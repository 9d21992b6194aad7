// Package lifecycle holds the process-wide lifecycle state: the
// startup-complete flag and the gate the main goroutine blocks on until a
// termination signal releases it.
//
// The state lives in an explicit [Context] rather than package globals so
// tests can construct an isolated lifecycle, drive it through the signal
// dispatcher, and observe the gate without OS-level process termination.
// One Context exists per process in normal operation.
package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Context is the shared lifecycle state for one process.
//
// The zero value is not usable; construct with [New].
type Context struct {
	// startupComplete is set exactly once by the startup sequence after all
	// subsystems are initialized. Termination handling reads it to decide
	// between graceful shutdown and immediate exit.
	startupComplete atomic.Bool

	// gate is closed exactly once by [Context.Release]. The main goroutine
	// blocks on it in [Context.Wait].
	gate chan struct{}

	// releaseOnce collapses concurrent releases into one effective close.
	// Two termination signals arriving back to back must not double-close.
	releaseOnce sync.Once
}

// New returns a fresh lifecycle Context with the gate held and startup
// incomplete.
func New() *Context {
	return &Context{gate: make(chan struct{})}
}

// MarkStartupComplete records that all subsystems are initialized. Called by
// the startup sequence, never by signal handling. Write-once by convention;
// later calls are harmless.
func (c *Context) MarkStartupComplete() {
	c.startupComplete.Store(true)
}

// StartupComplete reports whether the startup sequence has finished.
func (c *Context) StartupComplete() bool {
	return c.startupComplete.Load()
}

// Release opens the gate, unblocking every current and future [Context.Wait].
// Idempotent: releasing an already-released gate is a no-op, so racing
// termination signals are safe. Safe to call before any waiter exists; the
// release is never lost.
func (c *Context) Release() {
	c.releaseOnce.Do(func() { close(c.gate) })
}

// Wait blocks until the gate is released. There is no timeout; the main
// goroutine waits indefinitely until a termination signal (or test) calls
// [Context.Release]. Returns immediately if the gate was already released.
func (c *Context) Wait() {
	<-c.gate
}

// Released reports whether the gate has been released, without blocking.
func (c *Context) Released() bool {
	select {
	case <-c.gate:
		return true
	default:
		return false
	}
}
