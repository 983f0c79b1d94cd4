// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lease implements durable, host-wide mutual exclusion for named
// units of work. A lease is a JSON file in a well-known directory, created
// with O_CREATE|O_EXCL so that exactly one process can hold it. Leases
// survive crashes; holders that stop heartbeating, or whose process has
// exited, are considered stale and their leases can be reclaimed by the
// next acquirer.
package lease

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrHeld is returned when a lease file already exists for the identity.
	ErrHeld = errors.New("lease already held")
	// ErrNotHeld is returned when no lease file exists for the identity.
	ErrNotHeld = errors.New("no lease held")
	// ErrCorruptLease is returned when a lease file cannot be decoded.
	ErrCorruptLease = errors.New("lease file is not valid")
	// ErrLeaseLost is returned when the lease file no longer records this run.
	ErrLeaseLost = errors.New("lease no longer held by this run")
	// ErrHeartbeatInterval is returned when the heartbeat interval is not
	// strictly shorter than the staleness timeout.
	ErrHeartbeatInterval = errors.New("heartbeat interval must be shorter than the staleness timeout")
)

// timeNow is a hook for tests that need a fixed clock.
var timeNow = time.Now

// Holder identifies the process run that created a lease.
type Holder struct {
	// PID is the operating system process ID of the holder.
	PID int `json:"pid"`
	// Hostname is the host the holder runs on. Process liveness is only
	// probed when it matches the local hostname.
	Hostname string `json:"hostname"`
	// RunID uniquely identifies one acquisition, so a holder can tell its
	// own lease apart from a replacement written by a forced acquirer.
	RunID string `json:"run_id"`
}

// Lease is the persisted record of a unit's exclusive execution slot.
type Lease struct {
	Identity    string    `json:"identity"`
	Holder      Holder    `json:"holder"`
	AcquiredAt  time.Time `json:"acquired_at"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
}

// HeartbeatAge returns the time elapsed since the last heartbeat.
func (l *Lease) HeartbeatAge() time.Duration {
	return timeNow().UTC().Sub(l.HeartbeatAt)
}

// newHolder describes the current process.
func newHolder() Holder {
	host, _ := os.Hostname()

	return Holder{
		PID:      os.Getpid(),
		Hostname: host,
		RunID:    uuid.NewString(),
	}
}

// HeldError is returned when an acquisition finds a live lease for the same
// identity. It carries the holder details so callers can report who owns the
// lease.
type HeldError struct {
	Lease *Lease
}

// Error implements the error interface.
func (e *HeldError) Error() string {
	return fmt.Sprintf(
		"lease for %q is held by pid %d on %q (acquired %s, heartbeat %s ago)",
		e.Lease.Identity,
		e.Lease.Holder.PID,
		e.Lease.Holder.Hostname,
		e.Lease.AcquiredAt.Format(time.RFC3339),
		e.Lease.HeartbeatAge().Round(time.Second),
	)
}

// Unwrap makes a HeldError match ErrHeld in errors.Is.
func (e *HeldError) Unwrap() error {
	return ErrHeld
}
