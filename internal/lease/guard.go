// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lease

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
)

// Guard represents a held lease. It refreshes the heartbeat in the
// background until Release is called or the context is cancelled.
type Guard struct {
	lease   *Lease
	store   *FileStore
	release sync.Once
	stop    chan struct{}
	done    chan struct{}
}

func (s *FileStore) newGuard(ctx context.Context, l *Lease) *Guard {
	g := &Guard{
		lease: l,
		store: s,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go g.heartbeatLoop(ctx)

	return g
}

// Lease returns a copy of the held lease.
func (g *Guard) Lease() Lease {
	return *g.lease
}

func (g *Guard) heartbeatLoop(ctx context.Context) {
	defer close(g.done)

	ticker := time.NewTicker(g.store.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := g.store.refresh(g.lease)
			if err == nil {
				continue
			}

			if errors.Is(err, ErrLeaseLost) {
				ctxlog.Warn(ctx, "lease lost, stopping heartbeat", "identity", g.lease.Identity, "error", err)
				return
			}

			// Transient write failures are tolerated; the holder stays
			// valid until the staleness timeout elapses.
			ctxlog.Warn(ctx, "lease heartbeat failed", "identity", g.lease.Identity, "error", err)
		}
	}
}

// Release stops the heartbeat and removes the lease file. It is safe to call
// multiple times; only the first call does the work. The lease file is left
// untouched when another run has taken it over in the meantime.
func (g *Guard) Release() error {
	var err error

	g.release.Do(func() {
		close(g.stop)
		<-g.done

		err = g.store.deleteOwned(g.lease)
	})

	return err
}
