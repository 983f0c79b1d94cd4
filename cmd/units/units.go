// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package units contains the command that lists the units a manifest
// declares, without running anything.
package units

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/matt-FFFFFF/lockstep/internal/config"
	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag   = "file"
	jsonFlag   = "json"
	cliExitStr = ""
)

// UnitsCmd lists the units declared by a manifest.
var UnitsCmd = &cli.Command{
	Name:        "units",
	Description: "List the units declared by a manifest file.",
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
			Name:     jsonFlag,
			Usage:    "Render the unit list as JSON",
			OnlyOnce: true,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		src := cmd.String(fileFlag)

		data, err := config.Fetch(ctx, src)
		if err != nil {
			ctxlog.Error(ctx, "Failed to fetch manifest", "source", src, "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		manifest, err := config.ParseManifest(src, data)
		if err != nil {
			ctxlog.Error(ctx, "Failed to parse manifest", "source", src, "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		if err := writeUnits(cmd.Writer, manifest, cmd.Bool(jsonFlag)); err != nil {
			ctxlog.Error(ctx, "Failed to render units", "error", err)
			return cli.Exit(cliExitStr, 1)
		}

		return nil
	},
}

type jsonUnit struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Ignored     bool   `json:"ignored,omitempty"`
}

// writeUnits renders the manifest's scripts in declaration order, which is
// also the order a full batch runs them in.
func writeUnits(w io.Writer, m *config.Manifest, asJSON bool) error {
	if asJSON {
		out := make([]jsonUnit, 0, len(m.Scripts))

		for _, s := range m.Scripts {
			out = append(out, jsonUnit{
				Name:        s.Name,
				Description: s.Description,
				Ignored:     s.Ignored,
			})
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	for _, s := range m.Scripts {
		mark := ""
		if s.Ignored {
			mark = " (ignored)"
		}

		desc := ""
		if s.Description != "" {
			desc = "\t" + s.Description
		}

		if _, err := fmt.Fprintf(w, "%s%s%s\n", s.Name, mark, desc); err != nil {
			return err
		}
	}

	return nil
}
