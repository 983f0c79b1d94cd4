// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
)

func TestWatch_FirstSignalCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = ctxlog.New(ctx, ctxlog.Discard)

	sigCh := make(chan os.Signal, 1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, cancel)
	}()
	sigCh <- os.Interrupt

	select {
	case <-ctx.Done():
		// ok
	case <-time.After(time.Second):
		t.Fatal("context should be cancelled after first signal")
	}

	close(sigCh)
	wg.Wait()
}

func TestWatch_SecondSignalForcesExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = ctxlog.New(ctx, ctxlog.Discard)

	var (
		exitMu   sync.Mutex
		exitCode int
		exited   bool
	)

	stubs := gostub.Stub(&exitFunc, func(code int) {
		exitMu.Lock()
		defer exitMu.Unlock()
		exitCode = code
		exited = true
	})
	defer stubs.Reset()

	sigCh := make(chan os.Signal, 2)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, cancel)
	}()
	sigCh <- os.Interrupt
	sigCh <- os.Interrupt

	wg.Wait()

	exitMu.Lock()
	defer exitMu.Unlock()

	assert.True(t, exited, "second signal of the same type should force termination")
	assert.Equal(t, exitCodeInterrupted, exitCode)
}

func TestWatch_DifferentSignalsNoExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = ctxlog.New(ctx, ctxlog.Discard)

	var (
		exitMu sync.Mutex
		exited bool
	)

	stubs := gostub.Stub(&exitFunc, func(int) {
		exitMu.Lock()
		defer exitMu.Unlock()
		exited = true
	})
	defer stubs.Reset()

	sigCh := make(chan os.Signal, 2)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, cancel)
	}()
	sigCh <- os.Interrupt
	sigCh <- os.Kill

	select {
	case <-ctx.Done():
		// ok, the first signal cancels
	case <-time.After(time.Second):
		t.Fatal("context should be cancelled by the first signal")
	}

	close(sigCh)
	wg.Wait()

	exitMu.Lock()
	defer exitMu.Unlock()

	assert.False(t, exited, "distinct signal types should not force termination")
}
