// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/matt-FFFFFF/lockstep/internal/config"
	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/matt-FFFFFF/lockstep/internal/orchestrator"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/report"
	"github.com/matt-FFFFFF/lockstep/internal/tui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	fileFlag           = "file"
	customFlag         = "custom"
	forceFlag          = "force"
	quickFlag          = "quick"
	debugFlag          = "debug"
	disableLoggingFlag = "disable-logging"
	clearLockFlag      = "clear-lock"
	ignoreFlag         = "ignore"
	lockDirFlag        = "lock-dir"
	staleAfterFlag     = "stale-after"
	heartbeatFlag      = "heartbeat"
	outFlag            = "out"
	jsonFlag           = "json"
	tuiFlag            = "tui"
	cliExitStr         = ""
)

// RunCmd is the command that runs the batch of scripts defined in a
// manifest file.
var RunCmd = &cli.Command{
	Name: "run",
	Description: `Run the batch of scripts defined in a manifest file.

Each script is guarded by a durable lease keyed on its name: when another
live run already holds the lease the script is skipped, stale leases are
reclaimed, and --force bypasses live holders. Per-script failures never
stop the batch; every script's outcome is reported at the end and the exit
code is non-zero only when at least one script failed.

Manifest URLs use Hashicorp's go-getter syntax, which allows for fetching
files from various sources. See https://github.com/hashicorp/go-getter.

Positional arguments name the scripts to run and require --custom.
`,
	ArgsUsage: " [UNIT...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    fileFlag,
			Aliases: []string{"f"},
			Usage: "URL of the manifest file. Supports Hashicorp's go-getter " +
				"syntax for fetching files from various sources.",
			Value:    config.DefaultManifestName,
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     customFlag,
			Aliases:  []string{"c"},
			Usage:    "Run only the units named as arguments",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     forceFlag,
			Usage:    "Acquire locks even when a live holder exists",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     quickFlag,
			Aliases:  []string{"q"},
			Usage:    "Skip the environment setup steps before the batch",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     debugFlag,
			Aliases:  []string{"d"},
			Usage:    "Enable debug logging",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     disableLoggingFlag,
			Usage:    "Drop all log output",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     clearLockFlag,
			Usage:    "Delete the planned units' leases before acquiring them",
			OnlyOnce: true,
		},
		&cli.StringSliceFlag{
			Name:    ignoreFlag,
			Aliases: []string{"i"},
			Usage:   "Exclude a unit from a full-batch run. Specify multiple times to exclude several.",
		},
		&cli.StringFlag{
			Name:     lockDirFlag,
			Usage:    "Directory holding the lease files",
			OnlyOnce: true,
		},
		&cli.DurationFlag{
			Name:     staleAfterFlag,
			Usage:    "Heartbeat age beyond which a lease is considered stale",
			OnlyOnce: true,
		},
		&cli.DurationFlag{
			Name:     heartbeatFlag,
			Usage:    "Interval at which held leases are refreshed; must be shorter than stale-after",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:      outFlag,
			Aliases:   []string{"o"},
			Usage:     "Save the batch report to a file for later inspection with the show command",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.BoolFlag{
			Name:     jsonFlag,
			Usage:    "Render the batch report as JSON",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     tuiFlag,
			Aliases:  []string{"t", "interactive"},
			Usage:    "Run with an interactive terminal UI showing real-time progress",
			OnlyOnce: true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool(debugFlag) {
		ctxlog.LevelVar.Set(slog.LevelDebug)
	}

	if cmd.Bool(disableLoggingFlag) {
		ctx = ctxlog.New(ctx, ctxlog.Discard)
	}

	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	opts, err := buildOptions(ctx, cmd)
	if err != nil {
		logger.Error("Invalid run configuration", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	var rep *report.Report

	switch cmd.Bool(tuiFlag) {
	case true:
		// Buffer log output while the TUI owns the terminal.
		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		runner := tui.NewRunner()

		rep, err = runner.Run(tuiCtx, func(ctx context.Context, reporter progress.Reporter) (*report.Report, error) {
			opts.Reporter = reporter
			return orchestrator.Run(ctx, opts)
		})

		buf.WriteTo(cmd.Writer) //nolint:errcheck
	default:
		rep, err = orchestrator.Run(ctx, opts)
	}

	if err != nil {
		logger.Error("Batch aborted before any unit ran", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	if outFileName := cmd.String(outFlag); outFileName != "" {
		if err := saveReport(rep, outFileName); err != nil {
			logger.Error("Failed to save report", "file", outFileName, "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info("Report saved", "file", outFileName)
	}

	if err := renderReport(rep, cmd); err != nil {
		logger.Error("Failed to render report", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	if rep.HasFailure() {
		logger.Error("Some units failed. See the report above for details.")
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// buildOptions fetches the manifest and layers the command-line flags over
// its settings to produce the orchestrator options.
func buildOptions(ctx context.Context, cmd *cli.Command) (orchestrator.Options, error) {
	src := cmd.String(fileFlag)

	data, err := config.Fetch(ctx, src)
	if err != nil {
		return orchestrator.Options{}, err
	}

	manifest, err := config.ParseManifest(src, data)
	if err != nil {
		return orchestrator.Options{}, err
	}

	cfg, err := manifest.Apply(config.Default())
	if err != nil {
		return orchestrator.Options{}, err
	}

	cfg.Quick = cmd.Bool(quickFlag)
	cfg.Debug = cmd.Bool(debugFlag)
	cfg.Force = cmd.Bool(forceFlag)
	cfg.CustomOnly = cmd.Bool(customFlag)
	cfg.DisableLogging = cmd.Bool(disableLoggingFlag)
	cfg.ClearLock = cmd.Bool(clearLockFlag)
	cfg.RequestedNames = cmd.Args().Slice()
	cfg.IgnoreList = cmd.StringSlice(ignoreFlag)

	if cmd.IsSet(lockDirFlag) {
		cfg.LockDir = cmd.String(lockDirFlag)
	}

	if cmd.IsSet(staleAfterFlag) {
		cfg.StaleAfter = cmd.Duration(staleAfterFlag)
	}

	if cmd.IsSet(heartbeatFlag) {
		cfg.Heartbeat = cmd.Duration(heartbeatFlag)
	}

	registry, err := config.BuildRegistry(manifest)
	if err != nil {
		return orchestrator.Options{}, err
	}

	return orchestrator.Options{
		Config:   cfg,
		Registry: registry,
		Setup:    config.BuildSetupSteps(manifest),
	}, nil
}

func saveReport(rep *report.Report, fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}

	defer f.Close() //nolint:errcheck

	return rep.WriteBinary(f)
}

func renderReport(rep *report.Report, cmd *cli.Command) error {
	colour := term.IsTerminal(int(os.Stdout.Fd()))

	if cmd.Bool(jsonFlag) {
		return rep.WriteJSON(cmd.Writer, colour)
	}

	opts := report.DefaultOutputOptions()
	opts.Colour = colour

	return rep.WriteTextWithOptions(cmd.Writer, opts)
}
