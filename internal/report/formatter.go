// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/lockstep/internal/runbatch"
)

// OutputOptions controls how a report is rendered as text.
type OutputOptions struct {
	Colour        bool // Whether to style the output with ANSI colours
	ShowDurations bool // Whether to append per-unit durations
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		Colour:        false,
		ShowDurations: true,
	}
}

var (
	styleSucceeded = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleLocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleIgnored   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// glyphFor maps a terminal state onto its status indicator and style.
func glyphFor(s runbatch.State) (string, lipgloss.Style) {
	switch s {
	case runbatch.StateSucceeded:
		return "✓", styleSucceeded
	case runbatch.StateFailed:
		return "✗", styleFailed
	case runbatch.StateSkippedLocked:
		return "~", styleLocked
	case runbatch.StateSkippedIgnored:
		return "-", styleIgnored
	default:
		return "?", styleIgnored
	}
}

func colorize(s string, style lipgloss.Style, colour bool) string {
	if !colour {
		return s
	}

	return style.Render(s)
}

// WriteText renders the report to the writer with default options.
func (r *Report) WriteText(w io.Writer) error {
	return r.WriteTextWithOptions(w, nil)
}

// WriteTextWithOptions renders the report to the writer.
func (r *Report) WriteTextWithOptions(w io.Writer, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, o := range r.Outcomes {
		writeOutcome(w, o, options)
	}

	summary := r.Summarize()
	fmt.Fprintf( // nolint:errcheck
		w,
		"\n%d units: %d succeeded, %d failed, %d skipped (%s)\n",
		summary.Total,
		summary.Succeeded,
		summary.Failed,
		summary.Skipped(),
		r.Duration().Round(time.Millisecond),
	)

	return nil
}

func writeOutcome(w io.Writer, o *runbatch.Outcome, options *OutputOptions) {
	glyph, style := glyphFor(o.State)

	line := fmt.Sprintf(
		"%s %s",
		colorize(glyph, style, options.Colour),
		colorize(o.Identity, style, options.Colour),
	)

	switch o.State {
	case runbatch.StateSkippedLocked:
		line += " (locked)"
	case runbatch.StateSkippedIgnored:
		line += " (ignored)"
	case runbatch.StateSucceeded, runbatch.StateFailed:
		if options.ShowDurations {
			line += fmt.Sprintf(" (%s)", o.Duration.Round(time.Millisecond))
		}
	}

	fmt.Fprintln(w, line) // nolint:errcheck

	if o.Err == nil {
		return
	}

	prefix, prefixStyle := "➜ Error:", styleFailed
	if o.State == runbatch.StateSkippedLocked {
		prefix, prefixStyle = "➜ Skipped:", styleLocked
	}

	fmt.Fprintf(w, "  %s %s\n", colorize(prefix, prefixStyle, options.Colour), o.Err.Error()) // nolint:errcheck
}
