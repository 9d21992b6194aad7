// Unix control endpoint transport: a socket file inside the data directory.
//
// This file is compiled on all non-Windows platforms (Linux, macOS, *BSD).

//go:build !windows

package control

import (
	"net"
	"os"

	"tools.zach/dev/sigward/internal/paths"
)

// listen binds the Unix control socket, removing any stale socket file a
// previous unclean exit left behind. The PID lock already guarantees a
// single daemon instance, so an existing file here is always stale.
func listen(d paths.DataDir) (net.Listener, error) {
	if err := os.Remove(d.Socket()); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return net.Listen("unix", d.Socket())
}

// dial connects to the Unix control socket.
func dial(d paths.DataDir) (net.Conn, error) {
	return net.Dial("unix", d.Socket())
}
