// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
)

var (
	// ErrMarshalReport is returned when the report cannot be serialized.
	ErrMarshalReport = errors.New("failed to marshal report")
	// ErrWriteReport is returned when writing the rendered report fails.
	ErrWriteReport = errors.New("failed to write report")
)

type jsonReport struct {
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Duration string        `json:"duration"`
	Failed   bool          `json:"failed"`
	Summary  jsonSummary   `json:"summary"`
	Outcomes []jsonOutcome `json:"outcomes"`
}

type jsonSummary struct {
	Total          int `json:"total"`
	Succeeded      int `json:"succeeded"`
	Failed         int `json:"failed"`
	SkippedLocked  int `json:"skipped_locked"`
	SkippedIgnored int `json:"skipped_ignored"`
}

type jsonOutcome struct {
	Unit     string `json:"unit"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func (r *Report) toJSON() jsonReport {
	summary := r.Summarize()

	out := jsonReport{
		Started:  r.Started,
		Finished: r.Finished,
		Duration: r.Duration().Round(time.Millisecond).String(),
		Failed:   r.HasFailure(),
		Summary: jsonSummary{
			Total:          summary.Total,
			Succeeded:      summary.Succeeded,
			Failed:         summary.Failed,
			SkippedLocked:  summary.SkippedLocked,
			SkippedIgnored: summary.SkippedIgnored,
		},
		Outcomes: make([]jsonOutcome, 0, len(r.Outcomes)),
	}

	for _, o := range r.Outcomes {
		jo := jsonOutcome{
			Unit:  o.Identity,
			State: o.State.String(),
		}
		if o.Err != nil {
			jo.Error = o.Err.Error()
		}

		if o.State == runbatch.StateSucceeded || o.State == runbatch.StateFailed {
			jo.Duration = o.Duration.Round(time.Millisecond).String()
		}

		out.Outcomes = append(out.Outcomes, jo)
	}

	return out
}

// WriteJSON renders the report as JSON. With colour enabled the output is
// syntax highlighted for terminal display.
func (r *Report) WriteJSON(w io.Writer, colour bool) error {
	if !colour {
		buf, err := json.MarshalIndent(r.toJSON(), "", "  ")
		if err != nil {
			return errors.Join(ErrMarshalReport, err)
		}

		if _, err := w.Write(append(buf, '\n')); err != nil {
			return errors.Join(ErrWriteReport, err)
		}

		return nil
	}

	data, err := json.Marshal(r.toJSON())
	if err != nil {
		return errors.Join(ErrMarshalReport, err)
	}

	// colorjson formats generic JSON values, so round-trip through any.
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Join(ErrMarshalReport, err)
	}

	formatter := colorjson.NewFormatter()
	formatter.Indent = 2

	pretty, err := formatter.Marshal(obj)
	if err != nil {
		return errors.Join(ErrMarshalReport, err)
	}

	if _, err := fmt.Fprintf(w, "%s\n", pretty); err != nil {
		return errors.Join(ErrWriteReport, err)
	}

	return nil
}
