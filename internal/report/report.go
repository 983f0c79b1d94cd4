// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
)

// Report is the assembled result of one batch invocation. Outcomes are in
// plan order.
type Report struct {
	Started  time.Time
	Finished time.Time
	Outcomes runbatch.Outcomes
}

// Summary holds the aggregate counts for a report.
type Summary struct {
	Total          int
	Succeeded      int
	Failed         int
	SkippedLocked  int
	SkippedIgnored int
}

// Skipped returns the number of units skipped for any reason.
func (s Summary) Skipped() int {
	return s.SkippedLocked + s.SkippedIgnored
}

// Duration returns how long the batch ran.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// HasFailure reports whether any unit failed. Skipped units never count
// as failures.
func (r *Report) HasFailure() bool {
	return r.Outcomes.HasFailure()
}

// Summarize computes the aggregate counts for the report.
func (r *Report) Summarize() Summary {
	return Summary{
		Total:          len(r.Outcomes),
		Succeeded:      r.Outcomes.Count(runbatch.StateSucceeded),
		Failed:         r.Outcomes.Count(runbatch.StateFailed),
		SkippedLocked:  r.Outcomes.Count(runbatch.StateSkippedLocked),
		SkippedIgnored: r.Outcomes.Count(runbatch.StateSkippedIgnored),
	}
}
