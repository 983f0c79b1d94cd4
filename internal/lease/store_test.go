// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lease

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

const (
	testStaleAfter = 30 * time.Minute
	testHeartbeat  = time.Minute
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()

	s, err := NewFileStore(afero.NewMemMapFs(), "/locks", testStaleAfter, testHeartbeat)
	require.NoError(t, err)

	return s
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	return ctxlog.New(context.Background(), ctxlog.Discard)
}

// writeLease persists an arbitrary lease record, bypassing acquisition.
func writeLease(t *testing.T, s *FileStore, l *Lease) {
	t.Helper()
	require.NoError(t, s.write(l))
}

func TestNewFileStore_IntervalValidation(t *testing.T) {
	tests := []struct {
		name       string
		staleAfter time.Duration
		heartbeat  time.Duration
		wantErr    bool
	}{
		{
			name:       "valid intervals",
			staleAfter: 30 * time.Minute,
			heartbeat:  30 * time.Second,
			wantErr:    false,
		},
		{
			name:       "heartbeat equal to staleness",
			staleAfter: time.Minute,
			heartbeat:  time.Minute,
			wantErr:    true,
		},
		{
			name:       "heartbeat longer than staleness",
			staleAfter: time.Minute,
			heartbeat:  2 * time.Minute,
			wantErr:    true,
		},
		{
			name:       "zero staleness",
			staleAfter: 0,
			heartbeat:  time.Second,
			wantErr:    true,
		},
		{
			name:       "zero heartbeat",
			staleAfter: time.Minute,
			heartbeat:  0,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()

			s, err := NewFileStore(fs, "/locks", tt.staleAfter, tt.heartbeat)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrHeartbeatInterval)
				assert.Nil(t, s)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, s)

			exists, err := afero.DirExists(fs, "/locks")
			require.NoError(t, err)
			assert.True(t, exists, "lock directory should be created")
		})
	}
}

func TestAcquireAndRelease(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	guard, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err)
	require.NotNil(t, guard)

	l, err := s.Read("nightly-etl")
	require.NoError(t, err)
	assert.Equal(t, "nightly-etl", l.Identity)
	assert.Equal(t, os.Getpid(), l.Holder.PID)
	assert.NotEmpty(t, l.Holder.RunID)
	assert.False(t, l.AcquiredAt.IsZero())
	assert.False(t, s.IsStale(l))

	require.NoError(t, guard.Release())

	_, err = s.Read("nightly-etl")
	assert.ErrorIs(t, err, ErrNotHeld)

	// Releasing again is a no-op.
	require.NoError(t, guard.Release())
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	guard, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err)

	defer guard.Release() //nolint:errcheck

	_, err = s.Acquire(ctx, "nightly-etl", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHeld)

	heldErr := &HeldError{}
	require.ErrorAs(t, err, &heldErr)
	assert.Equal(t, "nightly-etl", heldErr.Lease.Identity)
	assert.Equal(t, os.Getpid(), heldErr.Lease.Holder.PID)
}

func TestAcquire_DistinctIdentitiesDoNotContend(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	g1, err := s.Acquire(ctx, "unit-a", false)
	require.NoError(t, err)

	g2, err := s.Acquire(ctx, "unit-b", false)
	require.NoError(t, err)

	require.NoError(t, g1.Release())
	require.NoError(t, g2.Release())
}

func TestAcquire_StaleHeartbeatReclaimed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	host, _ := os.Hostname()
	old := timeNow().UTC().Add(-2 * testStaleAfter)

	writeLease(t, s, &Lease{
		Identity:    "nightly-etl",
		Holder:      Holder{PID: os.Getpid(), Hostname: host, RunID: "previous-run"},
		AcquiredAt:  old,
		HeartbeatAt: old,
	})

	guard, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err, "a lease with an expired heartbeat must be reclaimable")

	l, err := s.Read("nightly-etl")
	require.NoError(t, err)
	assert.NotEqual(t, "previous-run", l.Holder.RunID)

	require.NoError(t, guard.Release())
}

func TestAcquire_DeadHolderReclaimed(t *testing.T) {
	defer goleak.VerifyNone(t)

	stubs := gostub.Stub(&processAlive, func(int) bool { return false })
	defer stubs.Reset()

	ctx := testContext(t)
	s := newTestStore(t)

	host, _ := os.Hostname()
	now := timeNow().UTC()

	writeLease(t, s, &Lease{
		Identity:    "nightly-etl",
		Holder:      Holder{PID: 12345, Hostname: host, RunID: "crashed-run"},
		AcquiredAt:  now,
		HeartbeatAt: now,
	})

	guard, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err, "a lease held by a dead process must be reclaimable even with a fresh heartbeat")

	require.NoError(t, guard.Release())
}

func TestAcquire_ForeignHostNotProbed(t *testing.T) {
	defer goleak.VerifyNone(t)

	stubs := gostub.Stub(&processAlive, func(int) bool { return false })
	defer stubs.Reset()

	ctx := testContext(t)
	s := newTestStore(t)

	now := timeNow().UTC()

	writeLease(t, s, &Lease{
		Identity:    "nightly-etl",
		Holder:      Holder{PID: 12345, Hostname: "some-other-host", RunID: "remote-run"},
		AcquiredAt:  now,
		HeartbeatAt: now,
	})

	_, err := s.Acquire(ctx, "nightly-etl", false)
	assert.ErrorIs(t, err, ErrHeld, "liveness must not be trusted for leases recorded on another host")
}

func TestAcquire_ForceBypassesLiveLease(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	g1, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err)

	g2, err := s.Acquire(ctx, "nightly-etl", true)
	require.NoError(t, err, "force must acquire over a live lease")

	// The bumped holder must not remove its replacement.
	require.NoError(t, g1.Release())

	l, err := s.Read("nightly-etl")
	require.NoError(t, err)
	assert.Equal(t, g2.Lease().Holder.RunID, l.Holder.RunID)

	require.NoError(t, g2.Release())

	_, err = s.Read("nightly-etl")
	assert.ErrorIs(t, err, ErrNotHeld)
}

func TestAcquire_UnreadableLease(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)

	t.Run("fresh unreadable file is treated as held", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, afero.WriteFile(s.fs, s.path("nightly-etl"), []byte("not json"), lockFileMode))

		_, err := s.Acquire(ctx, "nightly-etl", false)
		assert.ErrorIs(t, err, ErrHeld)
	})

	t.Run("old unreadable file is replaced", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, afero.WriteFile(s.fs, s.path("nightly-etl"), []byte("not json"), lockFileMode))

		stubs := gostub.Stub(&timeNow, func() time.Time {
			return time.Now().Add(2 * testStaleAfter)
		})
		defer stubs.Reset()

		guard, err := s.Acquire(ctx, "nightly-etl", false)
		require.NoError(t, err)
		require.NoError(t, guard.Release())
	})
}

func TestDelete_ClearsHeldLock(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	g1, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err)

	// Out-of-band clear, as an operator would do.
	require.NoError(t, s.Delete("nightly-etl"))

	g2, err := s.Acquire(ctx, "nightly-etl", false)
	require.NoError(t, err, "acquisition must succeed immediately after a clear")

	// The original guard no longer owns the lease and must leave it alone.
	require.NoError(t, g1.Release())

	_, err = s.Read("nightly-etl")
	require.NoError(t, err)

	require.NoError(t, g2.Release())
}

func TestDelete_NoLeaseIsNoOp(t *testing.T) {
	s := newTestStore(t)

	assert.NoError(t, s.Delete("never-acquired"))
}

func TestList(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := testContext(t)
	s := newTestStore(t)

	g1, err := s.Acquire(ctx, "unit-a", false)
	require.NoError(t, err)

	defer g1.Release() //nolint:errcheck

	g2, err := s.Acquire(ctx, "unit-b", false)
	require.NoError(t, err)

	defer g2.Release() //nolint:errcheck

	// Decoy files must be ignored; unreadable lock files must be listed.
	require.NoError(t, afero.WriteFile(s.fs, "/locks/readme.txt", []byte("not a lock"), lockFileMode))
	require.NoError(t, afero.WriteFile(s.fs, "/locks/broken.lock", []byte("not json"), lockFileMode))

	leases, err := s.List()
	require.NoError(t, err)
	require.Len(t, leases, 3)

	byIdentity := make(map[string]*Lease, len(leases))
	for _, l := range leases {
		byIdentity[l.Identity] = l
	}

	require.Contains(t, byIdentity, "unit-a")
	require.Contains(t, byIdentity, "unit-b")
	require.Contains(t, byIdentity, "broken")

	assert.False(t, s.IsStale(byIdentity["unit-a"]))
	assert.False(t, s.IsStale(byIdentity["unit-b"]))
	assert.True(t, s.IsStale(byIdentity["broken"]), "an unreadable lease should list as stale")
}

func TestConcurrentAcquire_SingleWinner(t *testing.T) {
	defer goleak.VerifyNone(t)

	// The real filesystem provides the O_EXCL atomicity guarantee the
	// production store relies on.
	s, err := NewFileStore(afero.NewOsFs(), t.TempDir(), testStaleAfter, testHeartbeat)
	require.NoError(t, err)

	ctx := testContext(t)

	const contenders = 16

	var (
		winners int32
		held    int32
	)

	guards := make(chan *Guard, contenders)

	eg, egCtx := errgroup.WithContext(ctx)

	for i := 0; i < contenders; i++ {
		eg.Go(func() error {
			guard, err := s.Acquire(egCtx, "contended-unit", false)
			if err == nil {
				atomic.AddInt32(&winners, 1)
				guards <- guard

				return nil
			}

			if errors.Is(err, ErrHeld) {
				atomic.AddInt32(&held, 1)
				return nil
			}

			return err
		})
	}

	require.NoError(t, eg.Wait())
	close(guards)

	assert.Equal(t, int32(1), atomic.LoadInt32(&winners), "exactly one concurrent acquirer must win")
	assert.Equal(t, int32(contenders-1), atomic.LoadInt32(&held))

	for guard := range guards {
		require.NoError(t, guard.Release())
	}
}

func TestPathSanitisation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		identity string
		want     string
	}{
		{identity: "nightly-etl", want: "/locks/nightly-etl.lock"},
		{identity: "jobs/extract load", want: "/locks/jobs_extract_load.lock"},
		{identity: "report:v2", want: "/locks/report_v2.lock"},
	}

	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			assert.Equal(t, tt.want, s.path(tt.identity))
		})
	}
}
