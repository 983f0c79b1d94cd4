// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultStaleAfter is the lease staleness threshold used when neither
	// the manifest nor the flags set one.
	DefaultStaleAfter = 30 * time.Minute
	// DefaultHeartbeat is the lease refresh interval used when neither the
	// manifest nor the flags set one.
	DefaultHeartbeat = 30 * time.Second

	lockDirName = "lockstep"
)

var (
	// ErrLockDirEmpty is returned when no lock directory is configured.
	ErrLockDirEmpty = errors.New("lock directory must not be empty")
	// ErrStaleAfterInvalid is returned when the staleness threshold is not
	// positive.
	ErrStaleAfterInvalid = errors.New("stale-after must be positive")
	// ErrHeartbeatInvalid is returned when the heartbeat interval is not
	// positive.
	ErrHeartbeatInvalid = errors.New("heartbeat must be positive")
	// ErrHeartbeatTooSlow is returned when the heartbeat interval is not
	// strictly shorter than the staleness threshold. A slower heartbeat
	// would let a live run be reclaimed as stale.
	ErrHeartbeatTooSlow = errors.New("heartbeat must be shorter than stale-after")
)

// Config is the immutable run configuration. It is assembled once at
// startup, from defaults, then the manifest, then the flags, and passed by
// value from there on.
type Config struct {
	// Quick skips the environment refresh before the batch.
	Quick bool
	// Debug lowers the log level to debug.
	Debug bool
	// Force acquires locks even when a live holder exists.
	Force bool
	// CustomOnly restricts the plan to RequestedNames.
	CustomOnly bool
	// DisableLogging drops all log output.
	DisableLogging bool
	// ClearLock deletes the planned identities' leases before running.
	ClearLock bool
	// RequestedNames are the unit names given on the command line.
	RequestedNames []string
	// IgnoreList removes names from a full-batch plan.
	IgnoreList []string
	// LockDir is where lease files live.
	LockDir string
	// StaleAfter is the heartbeat age beyond which a lease is stale.
	StaleAfter time.Duration
	// Heartbeat is the interval at which held leases are refreshed.
	Heartbeat time.Duration
}

// Default returns a Config carrying the built-in defaults. Flag and
// manifest values are layered on top by the caller.
func Default() Config {
	return Config{
		LockDir:    DefaultLockDir(),
		StaleAfter: DefaultStaleAfter,
		Heartbeat:  DefaultHeartbeat,
	}
}

// DefaultLockDir returns the per-user lock directory, falling back to the
// system temp directory when the user cache dir cannot be determined.
func DefaultLockDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), lockDirName, "locks")
	}

	return filepath.Join(base, lockDirName, "locks")
}

// Validate checks the cross-field rules that must hold before any lock is
// touched.
func (c Config) Validate() error {
	if c.LockDir == "" {
		return ErrLockDirEmpty
	}

	if c.StaleAfter <= 0 {
		return fmt.Errorf("%w: got %s", ErrStaleAfterInvalid, c.StaleAfter)
	}

	if c.Heartbeat <= 0 {
		return fmt.Errorf("%w: got %s", ErrHeartbeatInvalid, c.Heartbeat)
	}

	if c.Heartbeat >= c.StaleAfter {
		return fmt.Errorf("%w: heartbeat %s, stale-after %s",
			ErrHeartbeatTooSlow, c.Heartbeat, c.StaleAfter)
	}

	return nil
}
