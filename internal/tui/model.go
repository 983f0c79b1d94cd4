// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/report"
)

// unitStatus is the display state of one unit row.
type unitStatus int

const (
	statusPending unitStatus = iota
	statusLocking
	statusRunning
	statusSucceeded
	statusFailed
	statusSkippedLocked
	statusSkippedIgnored
)

// String returns a string representation of the unit status.
func (s unitStatus) String() string {
	switch s {
	case statusPending:
		return "pending"
	case statusLocking:
		return "locking"
	case statusRunning:
		return "running"
	case statusSucceeded:
		return "succeeded"
	case statusFailed:
		return "failed"
	case statusSkippedLocked:
		return "skipped (locked)"
	case statusSkippedIgnored:
		return "skipped (ignored)"
	default:
		return "unknown"
	}
}

// row is the display state of one unit. Rows are appended in event order,
// which the runner guarantees to be plan order.
type row struct {
	identity string
	status   unitStatus
	detail   string
	duration time.Duration
}

// Model is the bubbletea model for a running batch. All state changes flow
// through Update, so no locking is needed.
type Model struct {
	rows      []*row
	index     map[string]*row
	spinner   spinner.Model
	completed bool
	quitting  bool
	report    *report.Report
	styles    *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title     lipgloss.Style
	Running   lipgloss.Style
	Succeeded lipgloss.Style
	Failed    lipgloss.Style
	Locked    lipgloss.Style
	Ignored   lipgloss.Style
	Detail    lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Succeeded: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
		Locked: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")),
		Ignored: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
	}
}

// NewModel creates a new TUI model.
func NewModel() *Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("11"))),
	)

	return &Model{
		index:   make(map[string]*row),
		spinner: sp,
		styles:  NewStyles(),
	}
}

// getOrCreateRow returns the row for identity, appending a new pending row
// when the identity has not been seen before.
func (m *Model) getOrCreateRow(identity string) *row {
	if r, ok := m.index[identity]; ok {
		return r
	}

	r := &row{identity: identity, status: statusPending}
	m.index[identity] = r
	m.rows = append(m.rows, r)

	return r
}

// applyEvent folds one progress event into the row state.
func (m *Model) applyEvent(e progress.Event) {
	r := m.getOrCreateRow(e.Identity)

	switch e.Type {
	case progress.EventLocking:
		r.status = statusLocking

	case progress.EventStarted:
		r.status = statusRunning

	case progress.EventSucceeded:
		r.status = statusSucceeded
		r.duration = e.Data.Duration

	case progress.EventFailed:
		r.status = statusFailed
		r.duration = e.Data.Duration
		r.detail = e.Message

		if e.Data.Err != nil {
			r.detail = e.Data.Err.Error()
		}

	case progress.EventSkippedLocked:
		r.status = statusSkippedLocked
		r.detail = e.Message

	case progress.EventSkippedIgnored:
		r.status = statusSkippedIgnored
	}
}
