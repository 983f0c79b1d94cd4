// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package unit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrUnknownUnit is returned when a requested name is not registered.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrNoUnitsRequested is returned when custom mode is used without any
	// unit names.
	ErrNoUnitsRequested = errors.New("custom mode requires at least one unit name")
	// ErrNamesRequireCustom is returned when unit names are given without
	// custom mode.
	ErrNamesRequireCustom = errors.New("unit names can only be given in custom mode")
)

// Plan is an ordered list of units to execute. Outcomes are reported in plan
// order.
type Plan []Unit

// Identities returns the identities of the planned units, in order.
func (p Plan) Identities() []string {
	out := make([]string, 0, len(p))
	for _, u := range p {
		out = append(out, u.Identity())
	}

	return out
}

// Resolve turns operator input into an execution plan. Resolution is
// deterministic: the same registry and the same input always produce the
// same plan.
//
// In custom mode the plan is exactly the requested names in request order,
// deduplicated, each tagged TagCustom. Unknown names are collected into an
// ErrUnknownUnit aggregate; when at least one name resolves, the partial
// plan is returned alongside that error so the known units can still run.
//
// Otherwise the plan is every registered unit in registration order, minus
// the ignore list. Ignore names that match nothing are accepted silently.
// Units tagged TagIgnored at registration stay in the plan; the runner skips
// them and reports them, which keeps deliberately disabled units visible.
func Resolve(reg *Registry, requested, ignore []string, customOnly bool) (Plan, error) {
	if customOnly {
		return resolveCustom(reg, requested)
	}

	if len(requested) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNamesRequireCustom, strings.Join(requested, ", "))
	}

	ignoreSet := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ignoreSet[strings.TrimSpace(name)] = struct{}{}
	}

	all := reg.Units()
	plan := make(Plan, 0, len(all))

	for _, u := range all {
		if _, skip := ignoreSet[u.Identity()]; skip {
			continue
		}

		plan = append(plan, u)
	}

	return plan, nil
}

func resolveCustom(reg *Registry, requested []string) (Plan, error) {
	if len(requested) == 0 {
		return nil, ErrNoUnitsRequested
	}

	var unknown *multierror.Error

	seen := make(map[string]struct{}, len(requested))
	plan := make(Plan, 0, len(requested))

	for _, name := range requested {
		name = strings.TrimSpace(name)

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		u, ok := reg.Get(name)
		if !ok {
			unknown = multierror.Append(unknown, fmt.Errorf("%w: %q", ErrUnknownUnit, name))
			continue
		}

		plan = append(plan, u.WithTag(TagCustom))
	}

	if len(plan) == 0 {
		return nil, unknown.ErrorOrNil()
	}

	return plan, unknown.ErrorOrNil()
}
