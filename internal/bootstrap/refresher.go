// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/matt-FFFFFF/lockstep/internal/unit"
)

// ErrStepPanic is returned when a setup step panics instead of returning an
// error.
var ErrStepPanic = errors.New("setup step panicked")

// Step is a single named piece of environment preparation, typically a
// shell command such as a repository pull or a dependency install.
type Step struct {
	// Name identifies the step in logs and error messages.
	Name string
	// Action performs the step. A nil action succeeds immediately.
	Action unit.Action
}

// Refresher executes setup steps in declaration order. Every step runs even
// when an earlier one fails; the failures are collected and returned
// together so the caller can report them without aborting the batch.
type Refresher struct {
	steps []Step
}

// NewRefresher returns a Refresher over the given steps.
func NewRefresher(steps ...Step) *Refresher {
	return &Refresher{steps: steps}
}

// Len returns the number of configured steps.
func (r *Refresher) Len() int {
	return len(r.steps)
}

// Refresh runs every step in order and returns the aggregated failures, or
// nil when all steps succeeded. Cancelling the context stops the refresh
// before the next step starts; the context error is included in the
// aggregate.
func (r *Refresher) Refresh(ctx context.Context) error {
	if len(r.steps) == 0 {
		ctxlog.Debug(ctx, "No setup steps configured")
		return nil
	}

	ctxlog.Info(ctx, "Refreshing environment", "steps", len(r.steps))

	var agg *multierror.Error

	for _, s := range r.steps {
		select {
		case <-ctx.Done():
			agg = multierror.Append(agg, ctx.Err())
			return agg.ErrorOrNil()
		default:
		}

		logger := ctxlog.Logger(ctx).With("step", s.Name)
		logger.Debug("Running setup step")

		started := time.Now()

		if err := runStep(ctx, s); err != nil {
			logger.Warn("Setup step failed", "error", err)
			agg = multierror.Append(agg, fmt.Errorf("setup step %q: %w", s.Name, err))

			continue
		}

		logger.Debug("Setup step completed", "duration", time.Since(started))
	}

	return agg.ErrorOrNil()
}

// runStep invokes the step action, converting a panic into an error so a
// misbehaving step cannot take down the run.
func runStep(ctx context.Context, s Step) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanic, v)
		}
	}()

	if s.Action == nil {
		return nil
	}

	return s.Action(ctx)
}
