// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event represents a real-time update from batch execution.
// Events are emitted as each unit moves through its lifecycle to provide
// real-time feedback for the TUI and other monitoring systems.
type Event struct {
	Identity  string    // Identity of the unit the event relates to
	Type      EventType // Event type indicating what happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventLocking indicates the runner is acquiring the unit's lease.
	EventLocking EventType = iota
	// EventStarted indicates the unit's action has begun execution.
	EventStarted
	// EventSucceeded indicates the unit completed without error.
	EventSucceeded
	// EventFailed indicates the unit's action returned an error or panicked.
	EventFailed
	// EventSkippedLocked indicates the unit was skipped because its lease
	// is held by another live run.
	EventSkippedLocked
	// EventSkippedIgnored indicates the unit was skipped because it is
	// marked as ignored in the plan.
	EventSkippedIgnored
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventLocking:
		return "locking"
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventSkippedLocked:
		return "skipped-locked"
	case EventSkippedIgnored:
		return "skipped-ignored"
	default:
		return "unknown"
	}
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventFailed and EventSkippedLocked. A skipped-locked event
	// carries the lease holder details so listeners can display who
	// owns the lock.
	Err error

	// For EventSucceeded/EventFailed, how long the unit's action ran.
	Duration time.Duration
}

// Reporter is the interface for sending progress events.
// The batch runner calls Report synchronously as each unit changes state,
// so implementations observe events in plan order. Implementations must
// tolerate events arriving after Close.
type Reporter interface {
	// Report sends a progress event.
	Report(event Event)
	// Close signals that no more events will be sent and cleans up resources.
	Close()
}

// Listener receives progress events from a ChannelReporter.
// TUI implementations and other monitoring systems implement this interface.
type Listener interface {
	// OnEvent is called when a progress event is received.
	// Implementations should handle events quickly to avoid blocking
	// the reporting goroutine.
	OnEvent(event Event)
}

// NullReporter is a no-op implementation of Reporter.
// Used when progress reporting is not needed.
type NullReporter struct{}

// Report implements Reporter.Report by doing nothing.
func (nr *NullReporter) Report(event Event) {
	// No-op
}

// Close implements Reporter.Close by doing nothing.
func (nr *NullReporter) Close() {
	// No-op
}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return &NullReporter{}
}
