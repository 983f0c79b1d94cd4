// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lease

import (
	"errors"
	"os"
	"runtime"
	"syscall"
)

// processAlive reports whether a process with the given PID exists on the
// local host. It is a variable so tests can substitute the probe.
var processAlive = defaultProcessAlive

func defaultProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		// On Windows FindProcess opens a handle and fails for exited
		// processes, so the error itself answers the question.
		return false
	}

	if runtime.GOOS == "windows" {
		proc.Release() //nolint:errcheck
		return true
	}

	// On Unix FindProcess always succeeds; signal 0 performs the probe.
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false
	}

	// EPERM and friends mean the process exists but is owned by another user.
	return true
}
