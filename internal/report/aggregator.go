// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
)

// Aggregator accumulates outcomes as the batch progresses and finalizes
// them into a Report. It is not safe for concurrent use: the runner is
// sequential and records outcomes in plan order.
type Aggregator struct {
	started  time.Time
	outcomes runbatch.Outcomes
}

// NewAggregator creates an Aggregator and stamps the batch start time.
func NewAggregator() *Aggregator {
	return &Aggregator{
		started:  time.Now(),
		outcomes: runbatch.Outcomes{},
	}
}

// Record appends one outcome to the report being built.
func (a *Aggregator) Record(o *runbatch.Outcome) {
	a.outcomes = append(a.outcomes, o)
}

// RecordAll appends a run's outcomes in order.
func (a *Aggregator) RecordAll(outcomes runbatch.Outcomes) {
	a.outcomes = append(a.outcomes, outcomes...)
}

// Finalize stamps the finish time and returns the assembled report.
func (a *Aggregator) Finalize() *Report {
	return &Report{
		Started:  a.started,
		Finished: time.Now(),
		Outcomes: a.outcomes,
	}
}
