// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/lockstep/internal/bootstrap"
	"github.com/matt-FFFFFF/lockstep/internal/config"
	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/matt-FFFFFF/lockstep/internal/lease"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/report"
	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
	"github.com/matt-FFFFFF/lockstep/internal/unit"
	"github.com/spf13/afero"
)

// ErrConfiguration is returned when the run configuration fails validation.
// Nothing has been locked or executed when it is returned.
var ErrConfiguration = errors.New("configuration error")

// Options carries everything a run needs. Registry and Setup come from the
// manifest; Config from the flags layered over the manifest.
type Options struct {
	// Config is the validated-on-entry run configuration.
	Config config.Config
	// Registry holds the known units. A nil registry is treated as empty.
	Registry *unit.Registry
	// Setup are the environment refresh steps, skipped in quick mode.
	Setup []bootstrap.Step
	// Reporter receives progress events. Nil means no reporting.
	Reporter progress.Reporter
	// Fs is the filesystem the lock store lives on. Nil means the OS
	// filesystem.
	Fs afero.Fs
}

// Run executes one batch and returns its report. A non-nil error means the
// run aborted before any unit was locked or executed: invalid
// configuration, unresolvable plan or an unusable lock store. Unit failures
// never surface here; they are recorded in the report and the caller
// decides the exit status from Report.HasFailure.
func Run(ctx context.Context, opts Options) (*report.Report, error) {
	cfg := opts.Config

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	reg := opts.Registry
	if reg == nil {
		reg = unit.NewRegistry()
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	refresh(ctx, cfg, opts.Setup)

	plan, resolveErr := unit.Resolve(reg, cfg.RequestedNames, cfg.IgnoreList, cfg.CustomOnly)
	if resolveErr != nil && len(plan) == 0 {
		if errors.Is(resolveErr, unit.ErrNoUnitsRequested) || errors.Is(resolveErr, unit.ErrNamesRequireCustom) {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, resolveErr)
		}

		return nil, resolveErr
	}

	if resolveErr != nil {
		ctxlog.Warn(ctx, "Some requested units are unknown", "error", resolveErr)
	}

	store, err := lease.NewFileStore(fsys, cfg.LockDir, cfg.StaleAfter, cfg.Heartbeat)
	if err != nil {
		return nil, err
	}

	if cfg.ClearLock {
		if err := clearPlanned(ctx, store, plan); err != nil {
			return nil, err
		}
	}

	agg := report.NewAggregator()

	// Unknown requested names fail without running so the operator's typo
	// is visible in the report, ahead of the plan outcomes.
	for _, name := range unknownNames(cfg.RequestedNames, plan) {
		agg.Record(&runbatch.Outcome{
			Identity: name,
			State:    runbatch.StateFailed,
			Err:      fmt.Errorf("%w: %q", unit.ErrUnknownUnit, name),
		})
	}

	ctxlog.Info(ctx, "Starting batch",
		"units", len(plan),
		"force", cfg.Force,
		"lockDir", store.Dir(),
	)

	runner := &runbatch.Runner{
		Store:    store,
		Reporter: opts.Reporter,
		Force:    cfg.Force,
	}

	agg.RecordAll(runner.Run(ctx, plan))

	return agg.Finalize(), nil
}

// refresh runs the environment setup steps unless quick mode is on. Step
// failures are logged and deliberately not returned.
func refresh(ctx context.Context, cfg config.Config, steps []bootstrap.Step) {
	if cfg.Quick {
		if len(steps) > 0 {
			ctxlog.Info(ctx, "Quick mode, skipping environment refresh", "steps", len(steps))
		}

		return
	}

	if err := bootstrap.NewRefresher(steps...).Refresh(ctx); err != nil {
		ctxlog.Warn(ctx, "Environment refresh reported failures, continuing", "error", err)
	}
}

// clearPlanned deletes the lease of every planned identity. This is the
// operator recovery path behind the clear-lock flag.
func clearPlanned(ctx context.Context, store *lease.FileStore, plan unit.Plan) error {
	for _, identity := range plan.Identities() {
		if err := store.Delete(identity); err != nil {
			return fmt.Errorf("clearing lock for %q: %w", identity, err)
		}

		ctxlog.Debug(ctx, "Cleared lease", "unit", identity)
	}

	return nil
}

// unknownNames returns the requested names that did not resolve into the
// plan, trimmed and deduplicated, in request order.
func unknownNames(requested []string, plan unit.Plan) []string {
	if len(requested) == 0 {
		return nil
	}

	planned := make(map[string]struct{}, len(plan))
	for _, id := range plan.Identities() {
		planned[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(requested))

	var out []string

	for _, name := range requested {
		name = strings.TrimSpace(name)

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		if _, ok := planned[name]; !ok {
			out = append(out, name)
		}
	}

	return out
}
