// Windows has no cross-process SIGTERM delivery, so the control pipe is the
// only stop path there.

//go:build windows

package main

import (
	"fmt"

	"tools.zach/dev/sigward/internal/paths"
)

// signalStop reports that signalled stop is unavailable on Windows.
func signalStop(d paths.DataDir) error {
	return fmt.Errorf("no signal fallback on windows; is the control endpoint enabled?")
}
