// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile         = "daemon.pid"
	ConfigFile      = "config.toml"
	LogFile         = "daemon.log"
	DumpsDir        = "dumps"
	CrashMarkerFile = "crash.json"
	CrashLockFile   = "crash.lock"
	SocketFile      = "control.sock"
)

// DumpFilePattern is the doublestar glob matching stack dump files inside
// [DumpsDir]. Dump file names are "stack.<RFC3339-ish timestamp>.log", so
// lexical order is chronological order.
const DumpFilePattern = "stack.*.log"

const (
	BinaryName = "sigward"
	DataDirRel = ".sigward" // relative to $HOME
)

// PipeName is the Windows named pipe the control endpoint listens on.
// Unix builds use [DataDir.Socket] instead.
const PipeName = `\\.\pipe\sigward-control`

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Dumps returns the full path to the stack dump directory.
func (d DataDir) Dumps() string { return filepath.Join(d.Root, DumpsDir) }

// CrashMarker returns the full path to the crash marker file.
func (d DataDir) CrashMarker() string { return filepath.Join(d.Root, CrashMarkerFile) }

// CrashLock returns the full path to the crash marker lock file.
func (d DataDir) CrashLock() string { return filepath.Join(d.Root, CrashLockFile) }

// Socket returns the full path to the Unix control socket.
func (d DataDir) Socket() string { return filepath.Join(d.Root, SocketFile) }
