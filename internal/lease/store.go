// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/spf13/afero"
)

const (
	lockFileExt  = ".lock"
	lockFileMode = 0o644
	lockDirMode  = 0o755
)

// identityUnsafe matches the characters that are replaced when an identity
// is turned into a file name.
var identityUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore persists leases as files in a single directory.
// The zero value is not usable; construct with NewFileStore.
type FileStore struct {
	fs         afero.Fs
	dir        string
	staleAfter time.Duration
	heartbeat  time.Duration
}

// NewFileStore creates the lock directory if needed and returns a store.
// heartbeat must be strictly shorter than staleAfter so that a live holder
// can never be mistaken for a stale one.
func NewFileStore(fsys afero.Fs, dir string, staleAfter, heartbeat time.Duration) (*FileStore, error) {
	if staleAfter <= 0 || heartbeat <= 0 || heartbeat >= staleAfter {
		return nil, fmt.Errorf("%w: heartbeat %s, staleness timeout %s", ErrHeartbeatInterval, heartbeat, staleAfter)
	}

	if err := fsys.MkdirAll(dir, lockDirMode); err != nil {
		return nil, fmt.Errorf("creating lock directory %q: %w", dir, err)
	}

	return &FileStore{
		fs:         fsys,
		dir:        dir,
		staleAfter: staleAfter,
		heartbeat:  heartbeat,
	}, nil
}

// Dir returns the lock directory path.
func (s *FileStore) Dir() string {
	return s.dir
}

// StaleAfter returns the staleness timeout.
func (s *FileStore) StaleAfter() time.Duration {
	return s.staleAfter
}

func (s *FileStore) path(identity string) string {
	return filepath.Join(s.dir, identityUnsafe.ReplaceAllString(identity, "_")+lockFileExt)
}

// tryCreate atomically creates the lease file for identity. The O_EXCL flag
// is the mutual exclusion mechanism: the filesystem guarantees a single
// winner even across unrelated processes.
func (s *FileStore) tryCreate(identity string) (*Lease, error) {
	now := timeNow().UTC()
	l := &Lease{
		Identity:    identity,
		Holder:      newHolder(),
		AcquiredAt:  now,
		HeartbeatAt: now,
	}

	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding lease for %q: %w", identity, err)
	}

	f, err := s.fs.OpenFile(s.path(identity), os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %q", ErrHeld, identity)
		}

		return nil, fmt.Errorf("creating lease file for %q: %w", identity, err)
	}

	_, err = f.Write(b)

	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}

	if err != nil {
		s.fs.Remove(s.path(identity)) //nolint:errcheck
		return nil, fmt.Errorf("writing lease file for %q: %w", identity, err)
	}

	return l, nil
}

// Read returns the persisted lease for identity, ErrNotHeld when no lease
// file exists, or ErrCorruptLease when the file cannot be decoded.
func (s *FileStore) Read(identity string) (*Lease, error) {
	b, err := afero.ReadFile(s.fs, s.path(identity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotHeld, identity)
		}

		return nil, fmt.Errorf("reading lease file for %q: %w", identity, err)
	}

	l := &Lease{}
	if err := json.Unmarshal(b, l); err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrCorruptLease, identity, err)
	}

	return l, nil
}

// Delete removes the lease file for identity without inspecting the holder.
// This is the out-of-band clear operation used for operator recovery; it is
// a no-op when no lease exists.
func (s *FileStore) Delete(identity string) error {
	err := s.fs.Remove(s.path(identity))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lease file for %q: %w", identity, err)
	}

	return nil
}

// List returns every persisted lease. Files that cannot be decoded are
// reported as zero-valued leases named after the file, which makes them show
// up as stale.
func (s *FileStore) List() ([]*Lease, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading lock directory %q: %w", s.dir, err)
	}

	leases := make([]*Lease, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockFileExt) {
			continue
		}

		identity := strings.TrimSuffix(entry.Name(), lockFileExt)

		l, err := s.Read(identity)
		if err != nil {
			l = &Lease{Identity: identity}
		}

		leases = append(leases, l)
	}

	return leases, nil
}

// unreadableIsStale reports whether an undecodable lease file is old enough
// to be replaced. A vanished file counts as stale so the caller retries.
func (s *FileStore) unreadableIsStale(identity string) bool {
	info, err := s.fs.Stat(s.path(identity))
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}

	return timeNow().UTC().Sub(info.ModTime()) > s.staleAfter
}

// IsStale reports whether the lease may be reclaimed. A lease is stale when
// its heartbeat is older than the staleness timeout, or when its holder
// process no longer exists. Liveness is only probed for leases recorded on
// the local host; foreign leases age out by heartbeat alone.
func (s *FileStore) IsStale(l *Lease) bool {
	if l.HeartbeatAge() > s.staleAfter {
		return true
	}

	host, _ := os.Hostname()
	if l.Holder.Hostname == host && !processAlive(l.Holder.PID) {
		return true
	}

	return false
}

// Acquire takes the lease for identity and returns a guard that heartbeats
// until released. When the lease is held and live, a *HeldError is returned.
// Stale leases are reclaimed in place. With force set, any existing lease is
// deleted without inspection first.
func (s *FileStore) Acquire(ctx context.Context, identity string, force bool) (*Guard, error) {
	if force {
		if err := s.Delete(identity); err != nil {
			return nil, err
		}
	}

	l, err := s.tryCreate(identity)
	if err == nil {
		return s.newGuard(ctx, l), nil
	}

	if !errors.Is(err, ErrHeld) {
		return nil, err
	}

	existing, err := s.Read(identity)

	switch {
	case errors.Is(err, ErrNotHeld):
		// The holder released between our attempts; retry below.
	case errors.Is(err, ErrCorruptLease):
		// An unreadable file may be a lease mid-write by a racing
		// acquirer. Only replace it once it is old enough to be stale.
		if !s.unreadableIsStale(identity) {
			return nil, fmt.Errorf("%w: %q: lease file unreadable", ErrHeld, identity)
		}

		ctxlog.Warn(ctx, "replacing unreadable lease file", "identity", identity, "error", err)

		if err := s.Delete(identity); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case s.IsStale(existing):
		ctxlog.Info(ctx, "reclaiming stale lease",
			"identity", identity,
			"holder_pid", existing.Holder.PID,
			"holder_host", existing.Holder.Hostname,
			"heartbeat_age", existing.HeartbeatAge().Round(time.Second).String(),
		)

		if err := s.Delete(identity); err != nil {
			return nil, err
		}
	default:
		return nil, &HeldError{Lease: existing}
	}

	l, err = s.tryCreate(identity)
	if err == nil {
		return s.newGuard(ctx, l), nil
	}

	if errors.Is(err, ErrHeld) {
		// Lost the reclaim race to another acquirer.
		if existing, rerr := s.Read(identity); rerr == nil {
			return nil, &HeldError{Lease: existing}
		}
	}

	return nil, err
}

// write persists the lease unconditionally.
func (s *FileStore) write(l *Lease) error {
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lease for %q: %w", l.Identity, err)
	}

	if err := afero.WriteFile(s.fs, s.path(l.Identity), b, lockFileMode); err != nil {
		return fmt.Errorf("writing lease file for %q: %w", l.Identity, err)
	}

	return nil
}

// refresh updates the heartbeat timestamp, but only while the persisted
// lease still records the same run. A forced acquirer or an out-of-band
// clear invalidates the lease, in which case ErrLeaseLost is returned.
func (s *FileStore) refresh(l *Lease) error {
	existing, err := s.Read(l.Identity)
	if err != nil {
		if errors.Is(err, ErrNotHeld) || errors.Is(err, ErrCorruptLease) {
			return fmt.Errorf("%w: %q", ErrLeaseLost, l.Identity)
		}

		return err
	}

	if existing.Holder.RunID != l.Holder.RunID {
		return fmt.Errorf("%w: %q now held by pid %d", ErrLeaseLost, l.Identity, existing.Holder.PID)
	}

	l.HeartbeatAt = timeNow().UTC()

	return s.write(l)
}

// deleteOwned removes the lease file only while it still records this run,
// so a holder that was forced out cannot clobber its replacement.
func (s *FileStore) deleteOwned(l *Lease) error {
	existing, err := s.Read(l.Identity)
	if err != nil {
		if errors.Is(err, ErrNotHeld) || errors.Is(err, ErrCorruptLease) {
			return nil
		}

		return err
	}

	if existing.Holder.RunID != l.Holder.RunID {
		return nil
	}

	return s.Delete(l.Identity)
}
