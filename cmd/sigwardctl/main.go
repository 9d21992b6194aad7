// Package main implements sigwardctl, the command-line companion to the
// sigward daemon. It sends one control command over the daemon's control
// endpoint and prints the response.
//
// Usage:
//
//	sigwardctl [-data-dir DIR] roll    # rotate the daemon log files
//	sigwardctl [-data-dir DIR] dump    # capture a stack trace of all goroutines
//	sigwardctl [-data-dir DIR] status  # report the daemon lifecycle state
//	sigwardctl [-data-dir DIR] stop    # request graceful shutdown
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tools.zach/dev/sigward/internal/buildinfo"
	"tools.zach/dev/sigward/internal/control"
	"tools.zach/dev/sigward/internal/paths"
)

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

// readDaemonPID parses the daemon PID from the PID file, which holds
// "PID:TOKEN" content written by the daemon.
func readDaemonPID(d paths.DataDir) (int, error) {
	data, err := os.ReadFile(d.PID())
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pidStr, _, _ := strings.Cut(strings.TrimSpace(string(data)), ":")
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("malformed PID file %s: %w", d.PID(), err)
	}
	return pid, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: sigwardctl [-data-dir DIR] <%s|%s|%s|%s>\n",
		control.CmdRoll, control.CmdDump, control.CmdStatus, control.CmdStop)
	flag.PrintDefaults()
}

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory of the daemon to control")
	showVersion := flag.Bool("version", false, "Print build identity and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		ident := buildinfo.Resolve()
		fmt.Printf("sigwardctl %s (%s build, %s)\n", ident.ID, ident.Type, ident.OS)
		return
	}

	cmd := flag.Arg(0)
	switch cmd {
	case control.CmdRoll, control.CmdDump, control.CmdStatus, control.CmdStop:
	default:
		usage()
		os.Exit(2)
	}

	d := paths.DataDir{Root: *dataDir}

	resp, err := control.Send(d, cmd)
	if err != nil {
		// A stop must still work when the control endpoint is disabled or
		// wedged; fall back to signalling the daemon directly where the
		// platform allows it.
		if cmd == control.CmdStop {
			if sigErr := signalStop(d); sigErr == nil {
				fmt.Println("stopping (signalled)")
				return
			} else {
				fmt.Fprintf(os.Stderr, "error: %v\nerror: %v\n", err, sigErr)
				os.Exit(1)
			}
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if msg, ok := strings.CutPrefix(resp, "err "); ok {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		os.Exit(1)
	}
	fmt.Println(strings.TrimPrefix(resp, "ok "))
}
