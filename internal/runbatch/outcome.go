// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"slices"
	"time"
)

// Outcome records the terminal state of one unit in the plan.
type Outcome struct {
	Identity string        // Identity of the unit
	State    State         // Terminal state the unit reached
	Err      error         // Error for failed and skipped-locked units, nil otherwise
	Started  time.Time     // When the action began, zero for skipped units
	Duration time.Duration // How long the action ran, zero for skipped units
}

// Outcomes is a slice of Outcome pointers in plan order.
type Outcomes []*Outcome

// HasFailure reports whether any unit failed. Skipped units are not
// failures: a held lock or an ignore marking never fails the batch.
func (o Outcomes) HasFailure() bool {
	for v := range slices.Values(o) {
		if v.State == StateFailed {
			return true
		}
	}

	return false
}

// Count returns the number of outcomes in the given state.
func (o Outcomes) Count(s State) int {
	n := 0

	for v := range slices.Values(o) {
		if v.State == s {
			n++
		}
	}

	return n
}
