// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/report"
	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(identity string, typ progress.EventType) progress.Event {
	return progress.Event{
		Identity:  identity,
		Type:      typ,
		Timestamp: time.Now(),
	}
}

func TestUnitStatus_String(t *testing.T) {
	testCases := []struct {
		status unitStatus
		want   string
	}{
		{statusPending, "pending"},
		{statusLocking, "locking"},
		{statusRunning, "running"},
		{statusSucceeded, "succeeded"},
		{statusFailed, "failed"},
		{statusSkippedLocked, "skipped (locked)"},
		{statusSkippedIgnored, "skipped (ignored)"},
		{unitStatus(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.String())
		})
	}
}

func TestModel_GetOrCreateRow(t *testing.T) {
	m := NewModel()

	r := m.getOrCreateRow("extract")
	require.NotNil(t, r)
	assert.Equal(t, "extract", r.identity)
	assert.Equal(t, statusPending, r.status)

	assert.Same(t, r, m.getOrCreateRow("extract"))
	assert.Len(t, m.rows, 1)
}

func TestModel_ApplyEventLifecycle(t *testing.T) {
	m := NewModel()

	m.applyEvent(event("extract", progress.EventLocking))
	require.Len(t, m.rows, 1)
	assert.Equal(t, statusLocking, m.rows[0].status)

	m.applyEvent(event("extract", progress.EventStarted))
	assert.Equal(t, statusRunning, m.rows[0].status)

	done := event("extract", progress.EventSucceeded)
	done.Data.Duration = 1200 * time.Millisecond
	m.applyEvent(done)

	assert.Equal(t, statusSucceeded, m.rows[0].status)
	assert.Equal(t, 1200*time.Millisecond, m.rows[0].duration)
}

func TestModel_ApplyEventFailure(t *testing.T) {
	m := NewModel()

	failed := event("transform", progress.EventFailed)
	failed.Message = "transform exploded"
	failed.Data.Err = errors.New("transform exploded")
	m.applyEvent(failed)

	assert.Equal(t, statusFailed, m.rows[0].status)
	assert.Equal(t, "transform exploded", m.rows[0].detail)
}

func TestModel_ApplyEventSkips(t *testing.T) {
	m := NewModel()

	locked := event("load", progress.EventSkippedLocked)
	locked.Message = `lease for "load" is held by pid 4242`
	m.applyEvent(locked)

	m.applyEvent(event("cleanup", progress.EventSkippedIgnored))

	assert.Equal(t, statusSkippedLocked, m.rows[0].status)
	assert.Contains(t, m.rows[0].detail, "pid 4242")
	assert.Equal(t, statusSkippedIgnored, m.rows[1].status)
}

func TestModel_UpdateAndView(t *testing.T) {
	m := NewModel()

	next, _ := m.Update(EventMsg{Event: event("extract", progress.EventStarted)})
	model, ok := next.(*Model)
	require.True(t, ok)

	view := model.View()
	assert.Contains(t, view, "lockstep")
	assert.Contains(t, view, "extract")
	assert.Contains(t, view, "running... press 'q' to quit")
}

func TestModel_BatchDone(t *testing.T) {
	m := NewModel()

	m.applyEvent(event("extract", progress.EventStarted))

	done := event("extract", progress.EventSucceeded)
	done.Data.Duration = time.Second
	m.applyEvent(done)

	started := time.Now()
	rep := &report.Report{
		Started:  started,
		Finished: started.Add(time.Second),
		Outcomes: runbatch.Outcomes{
			{Identity: "extract", State: runbatch.StateSucceeded, Duration: time.Second},
		},
	}

	next, _ := m.Update(BatchDoneMsg{Report: rep})
	model, ok := next.(*Model)
	require.True(t, ok)

	view := model.View()
	assert.Contains(t, view, "1 units: 1 succeeded, 0 failed, 0 skipped")
	assert.Contains(t, view, "press 'q' to quit")
}

func TestModel_BatchDoneWithoutReport(t *testing.T) {
	m := NewModel()

	next, _ := m.Update(BatchDoneMsg{})
	model, ok := next.(*Model)
	require.True(t, ok)

	assert.Contains(t, model.View(), "Batch aborted before any unit ran")
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	model, ok := next.(*Model)
	require.True(t, ok)

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "Shutting down...\n", model.View())
}

func TestReporter(t *testing.T) {
	reporter := &Reporter{}

	e := event("extract", progress.EventStarted)

	assert.NotPanics(t, func() {
		reporter.Report(e)
	})

	assert.NotPanics(t, func() {
		reporter.Close()
	})

	assert.NotPanics(t, func() {
		reporter.Report(e)
	})
}
