// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/lockstep/internal/progress"
	"github.com/matt-FFFFFF/lockstep/internal/report"
)

// durationRounding keeps displayed durations readable.
const durationRounding = 100 * time.Millisecond

// EventMsg wraps a progress event for the tea framework.
type EventMsg struct {
	Event progress.Event
}

// BatchDoneMsg indicates that the batch has finished and carries its
// report. A nil report means the run aborted before any unit ran.
type BatchDoneMsg struct {
	Report *report.Report
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

		return m, nil

	case EventMsg:
		m.applyEvent(msg.Event)
		return m, nil

	case BatchDoneMsg:
		m.completed = true
		m.report = msg.Report

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render("lockstep"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(m.styles.Detail.Render("Waiting for the batch to start..."))
		b.WriteString("\n")
	}

	for _, r := range m.rows {
		m.renderRow(&b, r)
	}

	if m.completed {
		b.WriteString("\n")
		b.WriteString(m.renderSummary())
		b.WriteString("\n")
	}

	helpText := "running... press 'q' to quit"
	if m.completed {
		helpText = "press 'q' to quit"
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(helpText))
	b.WriteString("\n")

	return b.String()
}

// renderRow writes one unit line: marker, name and an optional detail such
// as the duration, the error or the holder of the lock.
func (m *Model) renderRow(b *strings.Builder, r *row) {
	var marker, name, detail string

	switch r.status {
	case statusLocking:
		marker = m.spinner.View()
		name = m.styles.Running.Render(r.identity)
		detail = m.styles.Detail.Render("acquiring lock")
	case statusRunning:
		marker = m.spinner.View()
		name = m.styles.Running.Render(r.identity)
	case statusSucceeded:
		marker = m.styles.Succeeded.Render("✓")
		name = m.styles.Succeeded.Render(r.identity)
		detail = m.styles.Detail.Render(r.duration.Round(durationRounding).String())
	case statusFailed:
		marker = m.styles.Failed.Render("✗")
		name = m.styles.Failed.Render(r.identity)
		detail = m.styles.Error.Render(r.detail)
	case statusSkippedLocked:
		marker = m.styles.Locked.Render("~")
		name = m.styles.Locked.Render(r.identity)
		detail = m.styles.Detail.Render(r.detail)
	case statusSkippedIgnored:
		marker = m.styles.Ignored.Render("-")
		name = m.styles.Ignored.Render(r.identity)
		detail = m.styles.Detail.Render("ignored")
	default:
		marker = " "
		name = m.styles.Ignored.Render(r.identity)
	}

	fmt.Fprintf(b, "  %s %s", marker, name) //nolint:errcheck

	if detail != "" {
		b.WriteString("  ")
		b.WriteString(detail)
	}

	b.WriteString("\n")
}

// renderSummary writes the closing line once the batch has completed.
func (m *Model) renderSummary() string {
	if m.report == nil {
		return m.styles.Failed.Render("Batch aborted before any unit ran")
	}

	sum := m.report.Summarize()
	line := fmt.Sprintf("%d units: %d succeeded, %d failed, %d skipped (%s)",
		sum.Total, sum.Succeeded, sum.Failed, sum.Skipped(),
		m.report.Duration().Round(durationRounding))

	if m.report.HasFailure() {
		return m.styles.Failed.Render(line)
	}

	return m.styles.Succeeded.Render(line)
}
