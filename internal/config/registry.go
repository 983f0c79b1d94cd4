// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"github.com/matt-FFFFFF/lockstep/internal/bootstrap"
	"github.com/matt-FFFFFF/lockstep/internal/scriptexec"
	"github.com/matt-FFFFFF/lockstep/internal/unit"
)

// BuildRegistry turns the manifest's scripts into a unit registry, in
// declaration order. Scripts marked ignored are registered with TagIgnored
// so they stay visible in the plan and the report.
func BuildRegistry(m *Manifest) (*unit.Registry, error) {
	reg := unit.NewRegistry()

	for _, s := range m.Scripts {
		cmd := scriptexec.Command{
			Name:             s.Name,
			CommandLine:      s.CommandLine,
			WorkingDirectory: s.WorkingDirectory,
			Env:              s.Env,
			SuccessExitCodes: s.SuccessExitCodes,
		}

		u := unit.Unit{
			Name:        s.Name,
			Description: s.Description,
			Action:      cmd.Action(),
		}

		if s.Ignored {
			u = u.WithTag(unit.TagIgnored)
		}

		if err := reg.Register(u); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// BuildSetupSteps turns the manifest's setup entries into bootstrap steps,
// in declaration order.
func BuildSetupSteps(m *Manifest) []bootstrap.Step {
	steps := make([]bootstrap.Step, 0, len(m.Setup))

	for _, s := range m.Setup {
		cmd := scriptexec.Command{
			Name:             s.Name,
			CommandLine:      s.CommandLine,
			WorkingDirectory: s.WorkingDirectory,
			Env:              s.Env,
		}

		steps = append(steps, bootstrap.Step{
			Name:   s.Name,
			Action: cmd.Action(),
		})
	}

	return steps
}
