// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"slices"
)

// State represents where a unit is in its execution lifecycle.
type State int

const (
	// StatePending is the initial state of every unit in the plan.
	StatePending State = iota
	// StateLocking means the runner is acquiring the unit's lease.
	StateLocking
	// StateRunning means the unit's action is executing under a held lease.
	StateRunning
	// StateSucceeded means the action completed without error.
	StateSucceeded
	// StateFailed means the action returned an error or panicked, or the
	// lease could not be acquired for a reason other than contention.
	StateFailed
	// StateSkippedLocked means the unit was not run because its lease is
	// held by another live run.
	StateSkippedLocked
	// StateSkippedIgnored means the unit was not run because the plan
	// marks it as ignored.
	StateSkippedIgnored
)

// String implements the Stringer interface for State.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLocking:
		return "locking"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkippedLocked:
		return "skipped-locked"
	case StateSkippedIgnored:
		return "skipped-ignored"
	default:
		return "unknown"
	}
}

// Terminal reports whether a unit in this state has finished, one way or
// another.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkippedLocked, StateSkippedIgnored:
		return true
	default:
		return false
	}
}

// validTransitions enumerates the unit lifecycle. A unit is either skipped
// from Pending, blocked at Locking, or runs to a success or failure.
var validTransitions = map[State][]State{
	StatePending: {StateLocking, StateSkippedIgnored},
	StateLocking: {StateRunning, StateSkippedLocked, StateFailed},
	StateRunning: {StateSucceeded, StateFailed},
}

// mustTransition returns to if the transition from from is legal and panics
// otherwise. A bad transition is a programming error in the runner, not a
// runtime condition.
func mustTransition(from, to State) State {
	if slices.Contains(validTransitions[from], to) {
		return to
	}

	panic(fmt.Sprintf("illegal unit state transition: %s -> %s", from, to))
}
