// Package main implements the sigward daemon: a process guardian that
// installs crash and termination signal handling, captures stack dumps and
// crash markers on fatal signals, serves a runtime control endpoint, and
// keeps its rotating log configuration live-reloadable.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	rootpkg "tools.zach/dev/sigward"
	"tools.zach/dev/sigward/internal/buildinfo"
	"tools.zach/dev/sigward/internal/config"
	"tools.zach/dev/sigward/internal/control"
	"tools.zach/dev/sigward/internal/crashreport"
	"tools.zach/dev/sigward/internal/fault"
	"tools.zach/dev/sigward/internal/lifecycle"
	"tools.zach/dev/sigward/internal/logger"
	"tools.zach/dev/sigward/internal/paths"
	"tools.zach/dev/sigward/internal/sigwatch"
)

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken generates a random 16-character hex token used to prove ownership
// of the PID file, so [removePID] only deletes the file if this instance wrote it.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID creates or opens the PID file at [DataPaths.PID], acquires an
// advisory file lock, and writes "PID:TOKEN" content. The returned file handle
// must be kept open for the lifetime of the daemon to hold the lock; pass it to
// [removePID] on shutdown.
func writePID(d DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(d.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return f, nil
}

// removePID releases the advisory lock, closes the file handle, and removes the
// PID file only if the stored token matches, preventing accidental removal of a
// file owned by a different daemon instance.
func removePID(d DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(d.PID())
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(d.PID())
	}
}

// checkStalePID checks whether another daemon instance is running. It attempts
// to acquire the advisory lock on the PID file; if the lock fails, another
// instance holds it. If the lock succeeds, any previous instance is dead and
// the stale file is cleaned up.
func checkStalePID(d DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(d.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(d.PID())
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if len(parts) >= 1 {
			if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
				return true, p
			}
		}
		return true, 0
	}

	// Lock acquired -- previous instance is dead. Clean up stale file.
	_ = unlockFile(f)
	f.Close()
	os.Remove(d.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for sigward data,
// typically ~/.sigward. Falls back to ./.sigward if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, state, and logs")
	showVersion := flag.Bool("version", false, "Print build identity and exit")
	flag.Parse()

	if *showVersion {
		ident := buildinfo.Resolve()
		fmt.Printf("%s %s (%s build, %s)\n", paths.BinaryName, ident.ID, ident.Type, ident.OS)
		return
	}

	d := DataPaths{Root: *dataDir}

	if err := os.MkdirAll(d.Dumps(), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if alive, pid := checkStalePID(d); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if err := config.SeedDefault(d.Root, rootpkg.DefaultConfigTOML); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", err)
	}

	cfg, err := config.Load(d.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	log, sink, err := logger.NewLogger(d.Log(), logLevel, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()
	slog.SetDefault(log)

	ident := buildinfo.Resolve()
	slog.Info("sigward starting",
		"build_id", ident.ID,
		"build_type", ident.Type,
		"os", ident.OS,
		"data_dir", d.Root,
	)

	token := pidToken()
	pidFile, err := writePID(d, token)
	if err != nil {
		slog.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer removePID(d, token, pidFile)

	// Report any crash the previous run left behind. Best effort in the
	// background; startup never waits on the network.
	if cfg.Report.Enabled {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("crash report panic", "error", r)
				}
			}()
			opts := crashreport.Options{
				URL:          cfg.Report.URL,
				Timeout:      time.Duration(cfg.Report.TimeoutSeconds) * time.Second,
				LogTailLines: cfg.Report.LogTailLines,
			}
			if err := crashreport.Upload(d, opts); err != nil {
				slog.Warn("crash report upload failed", "error", err)
			}
		}()
	}

	rep := fault.NewSinkReporter(log, sink, fault.Options{
		DumpDir:     d.Dumps(),
		DumpPattern: paths.DumpFilePattern,
		MaxDumps:    cfg.Dumps.MaxFiles,
		MarkerPath:  d.CrashMarker(),
		Identity:    ident,
	})

	lc := lifecycle.New()
	disp, err := sigwatch.Setup(sigwatch.Options{
		Lifecycle: lc,
		Reporter:  rep,
		Identity:  ident,
	})
	if err != nil {
		slog.Error("signal setup failed, aborting startup", "error", err)
		removePID(d, token, pidFile)
		os.Exit(1)
	}
	defer disp.Stop()

	if cfg.Control.Enabled {
		ctrl, ctrlErr := control.NewServer(d, rep, lc, disp)
		if ctrlErr != nil {
			slog.Warn("control endpoint unavailable", "error", ctrlErr)
		} else {
			defer ctrl.Close()
			slog.Info("control endpoint listening", "addr", ctrl.Addr())
		}
	}

	watcher, err := config.NewWatcher(d.Config())
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
		if watcher.Polling() {
			slog.Info("using polling mode for config watching")
		}
		go applyConfigChanges(watcher, d, sink)
	}

	lc.MarkStartupComplete()
	slog.Info("startup complete", "pid", os.Getpid())

	lc.Wait()
	slog.Info("shutdown complete")
}

// ///////////////////////////////////////////////
// Config Hot Reload
// ///////////////////////////////////////////////

// applyConfigChanges consumes config watcher events and applies the settings
// that can change at runtime. Only the log level is applied live; everything
// else requires a restart. The loop exits when the watcher is closed.
func applyConfigChanges(w *config.Watcher, d DataPaths, sink *logger.Sink) {
	for range w.Events() {
		cfg, err := config.Load(d.Root)
		if err != nil {
			slog.Warn("config reload failed, keeping current settings", "error", err)
			continue
		}
		level := logger.ParseLevel(cfg.Log.Level)
		if level != sink.Level() {
			sink.SetLevel(level)
			slog.Info("log level changed", "level", cfg.Log.Level)
		}
	}
}
