// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/matt-FFFFFF/lockstep/internal/lease"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/unit"
)

// ErrUnitPanic is the error recorded when a unit's action panics.
// It is constructed with the value that caused the panic.
type ErrUnitPanic struct {
	v any
}

// Error implements the error interface for ErrUnitPanic.
func (e *ErrUnitPanic) Error() string {
	prefix := "unit action panic:"

	switch x := e.v.(type) {
	case string:
		return fmt.Sprintf("%s %s", prefix, x)
	case error:
		return fmt.Sprintf("%s %s", prefix, x.Error())
	default:
		return fmt.Sprintf("%s %v", prefix, x)
	}
}

// NewErrUnitPanic creates a new ErrUnitPanic with the given value.
func NewErrUnitPanic(v any) error {
	return &ErrUnitPanic{v: v}
}

// Runner executes a plan of units sequentially, guarding each unit with
// its lease.
type Runner struct {
	// Store provides lease acquisition and release. Required.
	Store *lease.FileStore
	// Reporter receives lifecycle events. Nil means no reporting.
	Reporter progress.Reporter
	// Force bypasses held leases by deleting them before acquisition.
	Force bool
}

// Run executes the plan in order and returns one outcome per attempted
// unit. Cancelling the context stops the batch after the current unit,
// so units not yet attempted have no outcome.
func (r *Runner) Run(ctx context.Context, plan unit.Plan) Outcomes {
	reporter := r.Reporter
	if reporter == nil {
		reporter = progress.NewNullReporter()
	}

	outcomes := make(Outcomes, 0, len(plan))

	for _, u := range plan {
		select {
		case <-ctx.Done():
			ctxlog.Warn(ctx, "batch interrupted", "remaining", len(plan)-len(outcomes))
			return outcomes
		default:
		}

		outcomes = append(outcomes, r.runUnit(ctx, u, reporter))
	}

	return outcomes
}

// runUnit drives a single unit through its lifecycle and returns its
// outcome. The unit's lease is always released before runUnit returns.
func (r *Runner) runUnit(ctx context.Context, u unit.Unit, reporter progress.Reporter) *Outcome {
	identity := u.Identity()
	logger := ctxlog.Logger(ctx).With("unit", identity)

	state := StatePending

	if u.HasTag(unit.TagIgnored) {
		state = mustTransition(state, StateSkippedIgnored)
		logger.Info("Skipping unit marked as ignored")
		reporter.Report(progress.Event{
			Identity:  identity,
			Type:      progress.EventSkippedIgnored,
			Message:   "marked as ignored",
			Timestamp: time.Now(),
		})

		return &Outcome{Identity: identity, State: state}
	}

	state = mustTransition(state, StateLocking)
	reporter.Report(progress.Event{
		Identity:  identity,
		Type:      progress.EventLocking,
		Message:   "acquiring lock",
		Timestamp: time.Now(),
	})

	guard, err := r.Store.Acquire(ctx, identity, r.Force)

	switch {
	case errors.Is(err, lease.ErrHeld):
		state = mustTransition(state, StateSkippedLocked)
		logger.Warn("Skipping unit, lock held elsewhere", "reason", err.Error())
		reporter.Report(progress.Event{
			Identity:  identity,
			Type:      progress.EventSkippedLocked,
			Message:   err.Error(),
			Timestamp: time.Now(),
			Data:      progress.EventData{Err: err},
		})

		return &Outcome{Identity: identity, State: state, Err: err}

	case err != nil:
		state = mustTransition(state, StateFailed)
		logger.Error("Lock acquisition failed", "error", err)
		reporter.Report(progress.Event{
			Identity:  identity,
			Type:      progress.EventFailed,
			Message:   "lock acquisition failed",
			Timestamp: time.Now(),
			Data:      progress.EventData{Err: err},
		})

		return &Outcome{Identity: identity, State: state, Err: fmt.Errorf("acquiring lock: %w", err)}
	}

	defer func() {
		if rerr := guard.Release(); rerr != nil {
			// A leftover lease file is reclaimed as stale by a later run.
			logger.Warn("Failed to release lock", "error", rerr)
		}
	}()

	state = mustTransition(state, StateRunning)
	logger.Info("Executing unit")

	started := time.Now()

	reporter.Report(progress.Event{
		Identity:  identity,
		Type:      progress.EventStarted,
		Message:   "running",
		Timestamp: started,
	})

	err = runAction(ctx, u)
	duration := time.Since(started)

	if err != nil {
		state = mustTransition(state, StateFailed)
		logger.Error("Unit failed", "error", err, "duration", duration)
		reporter.Report(progress.Event{
			Identity:  identity,
			Type:      progress.EventFailed,
			Message:   err.Error(),
			Timestamp: time.Now(),
			Data:      progress.EventData{Err: err, Duration: duration},
		})

		return &Outcome{Identity: identity, State: state, Err: err, Started: started, Duration: duration}
	}

	state = mustTransition(state, StateSucceeded)
	logger.Info("Unit succeeded", "duration", duration)
	reporter.Report(progress.Event{
		Identity:  identity,
		Type:      progress.EventSucceeded,
		Message:   "completed successfully",
		Timestamp: time.Now(),
		Data:      progress.EventData{Duration: duration},
	})

	return &Outcome{Identity: identity, State: state, Started: started, Duration: duration}
}

// runAction executes the unit's action on its own goroutine so that a
// cancelled context unblocks the batch even when the action does not
// honour cancellation. Panics are recovered and returned as errors.
func runAction(ctx context.Context, u unit.Unit) error {
	if u.Action == nil {
		return nil
	}

	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				ctxlog.Error(ctx, "Unit action panicked", "unit", u.Identity(), "panic", v)
				errCh <- NewErrUnitPanic(v)
			}
		}()

		errCh <- u.Action(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
