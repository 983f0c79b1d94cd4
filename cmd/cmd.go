// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"os"

	"github.com/matt-FFFFFF/lockstep/cmd/locks"
	"github.com/matt-FFFFFF/lockstep/cmd/run"
	"github.com/matt-FFFFFF/lockstep/cmd/show"
	"github.com/matt-FFFFFF/lockstep/cmd/units"
	"github.com/urfave/cli/v3"
)

// RootCmd is the root command for the CLI.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		locks.LocksCmd,
		units.UnitsCmd,
		show.ShowCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "lockstep",
	Description: `Lockstep runs batches of script jobs defined in a manifest file,
guaranteeing that at most one instance of any given script executes on the
host at a time. Locks are durable lease files that survive crashes: stale
leases are detected and reclaimed, so a dead run never blocks future ones.
Per-script failures are isolated and the batch always runs to completion,
reporting every script's outcome.`,
	Usage:     "lockstep run --file lockstep.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}
