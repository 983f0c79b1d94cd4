// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"context"
	"errors"
	"os"

	"github.com/matt-FFFFFF/lockstep/internal/report"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	fileArg  = "file"
	jsonFlag = "json"
)

var (
	// ErrReadFile is returned when the report file cannot be read.
	ErrReadFile = errors.New("failed to read file")
	// ErrWriteReport is returned when the report cannot be written to stdout.
	ErrWriteReport = errors.New("failed to write report to stdout")
)

// ShowCmd is the command that renders a previously saved batch report.
var ShowCmd = &cli.Command{
	Name:        "show",
	Description: "Show a batch report previously saved with run --out.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      fileArg,
			UsageText: "REPORTFILE",
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:     jsonFlag,
			Usage:    "Render the report as JSON",
			OnlyOnce: true,
		},
	},
	Action: func(_ context.Context, cmd *cli.Command) error {
		file, err := os.Open(cmd.StringArg(fileArg))
		if err != nil {
			return errors.Join(ErrReadFile, err)
		}
		defer file.Close() //nolint:errcheck

		rep, err := report.ReadBinary(file)
		if err != nil {
			return err
		}

		colour := term.IsTerminal(int(os.Stdout.Fd()))

		if cmd.Bool(jsonFlag) {
			if err := rep.WriteJSON(cmd.Writer, colour); err != nil {
				return errors.Join(ErrWriteReport, err)
			}

			return nil
		}

		opts := report.DefaultOutputOptions()
		opts.Colour = colour

		if err := rep.WriteTextWithOptions(cmd.Writer, opts); err != nil {
			return errors.Join(ErrWriteReport, err)
		}

		return nil
	},
}
