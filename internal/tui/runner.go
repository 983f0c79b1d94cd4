// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/report"
)

var _ progress.Reporter = (*Reporter)(nil)

// Reporter forwards progress events to the running bubbletea program.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a reporter that sends events to program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{program: program}
}

// Report implements progress.Reporter.
func (r *Reporter) Report(e progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed || r.program == nil {
		return
	}

	r.program.Send(EventMsg{Event: e})
}

// Close implements progress.Reporter. Events reported after Close are
// dropped.
func (r *Reporter) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closed = true
}

// BatchFunc runs the batch, reporting progress as it goes, and returns the
// report.
type BatchFunc func(ctx context.Context, reporter progress.Reporter) (*report.Report, error)

// Runner couples the TUI program with a batch execution.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
	mutex    sync.Mutex
}

// NewRunner creates a new TUI runner.
func NewRunner() *Runner {
	model := NewModel()
	program := tea.NewProgram(model, tea.WithAltScreen())
	reporter := NewReporter(program)

	return &Runner{
		model:    model,
		program:  program,
		reporter: reporter,
	}
}

// Reporter returns the progress reporter wired to this TUI.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI and executes fn with progress reporting. When the
// batch completes, the summary stays on screen until the user quits. When
// the user quits early, the batch keeps running to completion so held
// leases are released cleanly.
func (r *Runner) Run(ctx context.Context, fn BatchFunc) (*report.Report, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	type batchResult struct {
		rep *report.Report
		err error
	}

	resultCh := make(chan batchResult, 1)

	go func() {
		rep, err := fn(ctx, r.reporter)
		resultCh <- batchResult{rep: rep, err: err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			// The run aborted before producing a report; nothing to show.
			r.reporter.Close()
			r.program.Quit()
			<-tuiDone

			return nil, res.err
		}

		r.program.Send(BatchDoneMsg{Report: res.rep})

		tuiErr := <-tuiDone
		r.reporter.Close()

		return res.rep, tuiErr

	case tuiErr := <-tuiDone:
		r.reporter.Close()

		select {
		case res := <-resultCh:
			return res.rep, errors.Join(res.err, tuiErr)
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), tuiErr)
		}

	case <-ctx.Done():
		r.reporter.Close()
		r.program.Quit()
		<-tuiDone

		select {
		case res := <-resultCh:
			return res.rep, res.err
		default:
			return nil, ctx.Err()
		}
	}
}
