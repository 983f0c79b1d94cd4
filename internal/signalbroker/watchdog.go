// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"os/signal"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
)

// exitCodeInterrupted is the conventional exit code for termination by signal.
const exitCodeInterrupted = 130

// exitFunc terminates the process. It is a variable so tests can intercept it.
var exitFunc = os.Exit

// Watch monitors the signal channel and handles signals.
// The first signal of a given type cancels the context, which gives in-flight
// work the chance to release held leases and return. A second signal of the
// same type terminates the process immediately.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	sigMap := make(map[os.Signal]struct{})
	for sig := range sigCh {
		if _, ok := sigMap[sig]; ok {
			ctxlog.Logger(ctx).Error(
				"watchdog",
				"detail", "received second signal of type, forcefully terminating",
				"signal", sig.String(),
			)
			signal.Stop(sigCh)
			exitFunc(exitCodeInterrupted)

			return
		}

		ctxlog.Logger(ctx).Info(
			"watchdog",
			"detail", "received first signal of type, cancelling context",
			"signal", sig.String(),
		)

		sigMap[sig] = struct{}{}

		cancel()
	}
}
