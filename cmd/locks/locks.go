// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package locks contains the operator commands for inspecting and clearing
// persisted leases out-of-band, without acquiring them.
package locks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/config"
	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/matt-FFFFFF/lockstep/internal/lease"
	"github.com/peterh/liner"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	lockDirFlag    = "lock-dir"
	staleAfterFlag = "stale-after"
	jsonFlag       = "json"
	allFlag        = "all"
	yesFlag        = "yes"
	cliExitStr     = ""
)

var (
	// ErrNoLockNames is returned when clear is called without names or --all.
	ErrNoLockNames = errors.New("specify at least one unit name or --all")
	// ErrAborted is returned when the operator declines the confirmation
	// prompt.
	ErrAborted = errors.New("aborted")
)

// LocksCmd groups the lease inspection and recovery commands.
var LocksCmd = &cli.Command{
	Name:        "locks",
	Description: "Inspect and clear the durable leases that guard unit execution.",
	Commands: []*cli.Command{
		listCmd,
		clearCmd,
	},
}

var listCmd = &cli.Command{
	Name:        "list",
	Description: "List the persisted leases with their holder, age and staleness.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     lockDirFlag,
			Usage:    "Directory holding the lease files",
			OnlyOnce: true,
		},
		&cli.DurationFlag{
			Name:     staleAfterFlag,
			Usage:    "Heartbeat age beyond which a lease is considered stale",
			Value:    config.DefaultStaleAfter,
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     jsonFlag,
			Usage:    "Render the lease list as JSON",
			OnlyOnce: true,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		store, err := newStore(cmd)
		if err != nil {
			ctxlog.Error(ctx, "Failed to open lock store", "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		leases, err := store.List()
		if err != nil {
			ctxlog.Error(ctx, "Failed to list leases", "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		if err := writeLeases(cmd.Writer, store, leases, cmd.Bool(jsonFlag)); err != nil {
			ctxlog.Error(ctx, "Failed to render leases", "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		return nil
	},
}

var clearCmd = &cli.Command{
	Name:        "clear",
	Description: "Delete persisted leases without acquiring them. Use for operator recovery when a lock file is wedged.",
	ArgsUsage:   " [UNIT...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     lockDirFlag,
			Usage:    "Directory holding the lease files",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     allFlag,
			Usage:    "Clear every persisted lease",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     yesFlag,
			Aliases:  []string{"y"},
			Usage:    "Skip the confirmation prompt",
			OnlyOnce: true,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		store, err := newStore(cmd)
		if err != nil {
			ctxlog.Error(ctx, "Failed to open lock store", "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		names := cmd.Args().Slice()

		if cmd.Bool(allFlag) {
			leases, err := store.List()
			if err != nil {
				ctxlog.Error(ctx, "Failed to list leases", "error", err)
				return cli.Exit(cliExitStr, 1)
			}

			names = make([]string, 0, len(leases))
			for _, l := range leases {
				names = append(names, l.Identity)
			}

			if len(names) == 0 {
				ctxlog.Info(ctx, "No leases to clear", "lockDir", store.Dir())
				return nil
			}

			if !cmd.Bool(yesFlag) {
				if err := confirmClearAll(len(names), store.Dir()); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}
		}

		if len(names) == 0 {
			return cli.Exit(ErrNoLockNames.Error(), 1)
		}

		if err := clearLeases(ctx, store, names); err != nil {
			return cli.Exit(cliExitStr, 1)
		}

		return nil
	},
}

// newStore opens the lock store named by the flags. The heartbeat value is
// irrelevant for inspection; any value below the staleness timeout will do.
func newStore(cmd *cli.Command) (*lease.FileStore, error) {
	dir := cmd.String(lockDirFlag)
	if dir == "" {
		dir = config.DefaultLockDir()
	}

	staleAfter := config.DefaultStaleAfter
	if cmd.IsSet(staleAfterFlag) {
		staleAfter = cmd.Duration(staleAfterFlag)
	}

	return lease.NewFileStore(afero.NewOsFs(), dir, staleAfter, staleAfter/2)
}

// clearLeases deletes the named leases, logging each removal. Missing
// leases are not errors: the goal state is "no lease", however we got there.
func clearLeases(ctx context.Context, store *lease.FileStore, names []string) error {
	for _, name := range names {
		if err := store.Delete(name); err != nil {
			ctxlog.Error(ctx, "Failed to clear lease", "unit", name, "error", err)
			return err
		}

		ctxlog.Info(ctx, "Cleared lease", "unit", name)
	}

	return nil
}

// confirmClearAll prompts the operator before a bulk delete. When stdin is
// not a terminal there is nobody to ask, so the operation is refused and
// --yes must be passed explicitly.
func confirmClearAll(count int, dir string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: refusing to clear all leases without a terminal; pass --yes to proceed", ErrAborted)
	}

	line := liner.NewLiner()
	defer line.Close() //nolint:errcheck

	line.SetCtrlCAborts(true)

	input, err := line.Prompt(fmt.Sprintf("Clear all %d lease(s) in %s? [y/N] ", count, dir))
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return ErrAborted
		}

		return err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return nil
	default:
		return ErrAborted
	}
}

type jsonLease struct {
	Unit        string    `json:"unit"`
	PID         int       `json:"pid"`
	Hostname    string    `json:"hostname"`
	AcquiredAt  time.Time `json:"acquired_at"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
	Age         string    `json:"age"`
	Stale       bool      `json:"stale"`
}

// writeLeases renders the lease list as an aligned text table or as JSON.
func writeLeases(w io.Writer, store *lease.FileStore, leases []*lease.Lease, asJSON bool) error {
	if asJSON {
		out := make([]jsonLease, 0, len(leases))

		for _, l := range leases {
			out = append(out, jsonLease{
				Unit:        l.Identity,
				PID:         l.Holder.PID,
				Hostname:    l.Holder.Hostname,
				AcquiredAt:  l.AcquiredAt,
				HeartbeatAt: l.HeartbeatAt,
				Age:         l.HeartbeatAge().Round(time.Second).String(),
				Stale:       store.IsStale(l),
			})
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if len(leases) == 0 {
		_, err := fmt.Fprintf(w, "no leases in %s\n", store.Dir())
		return err
	}

	for _, l := range leases {
		staleMark := ""
		if store.IsStale(l) {
			staleMark = " (stale)"
		}

		_, err := fmt.Fprintf(w, "%s\tpid %d on %s\theartbeat %s ago%s\n",
			l.Identity,
			l.Holder.PID,
			l.Holder.Hostname,
			l.HeartbeatAge().Round(time.Second),
			staleMark,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
