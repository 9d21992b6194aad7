// Windows control endpoint transport: a named pipe via go-winio. Windows
// has no Unix sockets in every supported version and no SIGHUP at all, so
// the pipe is the only runtime path for log rolling there.

//go:build windows

package control

import (
	"net"

	"github.com/Microsoft/go-winio"

	"tools.zach/dev/sigward/internal/paths"
)

// listen binds the control named pipe. The pipe name is global, not rooted
// in the data directory; the PID lock keeps instances from colliding.
func listen(_ paths.DataDir) (net.Listener, error) {
	return winio.ListenPipe(paths.PipeName, nil)
}

// dial connects to the control named pipe.
func dial(_ paths.DataDir) (net.Conn, error) {
	return winio.DialPipe(paths.PipeName, nil)
}
