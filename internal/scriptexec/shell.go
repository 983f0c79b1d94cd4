// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptexec

import (
	"os"
	"runtime"
)

const (
	defaultUnixShell    = "/bin/sh"
	defaultWindowsShell = "cmd.exe"
)

// shellInvocation returns the shell executable and argument list that run
// the given command line on this platform. Unix systems prefer $SHELL and
// fall back to /bin/sh; Windows uses %COMSPEC% or cmd.exe.
func shellInvocation(commandLine string) (string, []string) {
	if runtime.GOOS == "windows" {
		shell := os.Getenv("COMSPEC")
		if shell == "" {
			shell = defaultWindowsShell
		}

		return shell, []string{"/C", commandLine}
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = defaultUnixShell
	}

	return shell, []string{"-c", commandLine}
}
