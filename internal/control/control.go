// Package control serves the daemon's runtime control endpoint: a
// line-oriented command protocol over a Unix socket (or a named pipe on
// Windows, where SIGHUP does not exist and the endpoint is the only way to
// roll logs at runtime).
//
// Protocol: the client sends one command line and reads one response line.
// Responses start with "ok" or "err".
//
//	roll    -> rotate the log files
//	dump    -> capture a stack trace of all goroutines
//	status  -> report the lifecycle state (starting/running/stopping)
//	stop    -> request graceful shutdown (same gating as SIGTERM)
package control

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"tools.zach/dev/sigward/internal/fault"
	"tools.zach/dev/sigward/internal/lifecycle"
	"tools.zach/dev/sigward/internal/paths"
)

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

const (
	CmdRoll   = "roll"
	CmdDump   = "dump"
	CmdStatus = "status"
	CmdStop   = "stop"
)

// connTimeout bounds a single command exchange so a stuck client cannot pin
// a handler goroutine.
const connTimeout = 5 * time.Second

// Shutdowner routes a stop command through the same termination gating as a
// signal. Implemented by the signal dispatcher.
type Shutdowner interface {
	RequestShutdown(reason string)
}

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Server accepts control connections until closed.
type Server struct {
	ln      net.Listener
	rep     fault.Reporter
	lc      *lifecycle.Context
	stopper Shutdowner

	done chan struct{}
	once sync.Once
}

// NewServer starts the control endpoint for the given data directory and
// begins accepting connections.
func NewServer(d paths.DataDir, rep fault.Reporter, lc *lifecycle.Context, stopper Shutdowner) (*Server, error) {
	ln, err := listen(d)
	if err != nil {
		return nil, fmt.Errorf("listen control endpoint: %w", err)
	}

	s := &Server{
		ln:      ln,
		rep:     rep,
		lc:      lc,
		stopper: stopper,
		done:    make(chan struct{}),
	}
	go s.serve()
	return s, nil
}

// Addr returns the listener address, mainly for logging.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting connections and releases the listener. Idempotent.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ln.Close()
	})
	return err
}

// serve accepts connections until the listener is closed.
func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			slog.Debug("control accept failed", "error", err)
			continue
		}
		go s.handle(conn)
	}
}

// handle reads one command line, executes it, and writes one response line.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	cmd := strings.TrimSpace(scanner.Text())

	var resp string
	switch cmd {
	case CmdRoll:
		if err := s.rep.RollLogFiles(); err != nil {
			resp = "err " + err.Error()
		} else {
			resp = "ok rolled"
		}
	case CmdDump:
		s.rep.PrintStackTrace()
		resp = "ok dumped"
	case CmdStatus:
		resp = "ok " + s.state()
	case CmdStop:
		// Respond first; a post-startup stop releases the gate and the
		// process may exit before a later write would flush.
		resp = "ok stopping"
		fmt.Fprintf(conn, "%s\n", resp)
		s.stopper.RequestShutdown("control stop")
		return
	default:
		resp = fmt.Sprintf("err unknown command %q", cmd)
	}

	fmt.Fprintf(conn, "%s\n", resp)
}

// state reports the lifecycle state for the status command.
func (s *Server) state() string {
	switch {
	case s.lc.Released():
		return "stopping"
	case s.lc.StartupComplete():
		return "running"
	default:
		return "starting"
	}
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Send dials the control endpoint for the given data directory, sends one
// command, and returns the response line (without the trailing newline).
func Send(d paths.DataDir, cmd string) (string, error) {
	conn, err := dial(d)
	if err != nil {
		return "", fmt.Errorf("dial control endpoint: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return "", fmt.Errorf("connection closed without response")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
