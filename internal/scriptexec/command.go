// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/matt-FFFFFF/lockstep/internal/ctxlog"
	"github.com/matt-FFFFFF/lockstep/internal/unit"
)

const (
	maxOutputSize    = 8 * 1024 * 1024 // 8MB per stream
	maxStderrInError = 512             // stderr tail carried in an ExitError message
	killGracePeriod  = 10 * time.Second
)

var (
	// ErrCommandEmpty is returned when a script has no command line.
	ErrCommandEmpty = errors.New("command line is empty")
	// ErrCouldNotStart is returned when the shell process could not be started.
	ErrCouldNotStart = errors.New("could not start process")
)

// Command describes one script invocation taken from the manifest.
type Command struct {
	Name             string            // Script name, used as the unit identity
	CommandLine      string            // Shell command line to run
	WorkingDirectory string            // Working directory, empty inherits the process cwd
	Env              map[string]string // Extra environment variables layered over the process env
	SuccessExitCodes []int             // Exit codes treated as success, defaults to {0}
}

// ExitError is returned when a script exits with a code outside its
// success set. It carries the captured stderr so failures are diagnosable
// from the batch report alone.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   []byte
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	if len(e.Stderr) == 0 {
		return fmt.Sprintf("script %q exited with code %d", e.Command, e.ExitCode)
	}

	return fmt.Sprintf("script %q exited with code %d: %s", e.Command, e.ExitCode, tail(e.Stderr, maxStderrInError))
}

// Action returns the unit action that executes the command via the
// platform shell.
func (c Command) Action() unit.Action {
	return func(ctx context.Context) error {
		return c.run(ctx)
	}
}

func (c Command) run(ctx context.Context) error {
	logger := ctxlog.Logger(ctx).With("script", c.Name)

	if strings.TrimSpace(c.CommandLine) == "" {
		return ErrCommandEmpty
	}

	success := c.SuccessExitCodes
	if success == nil {
		success = []int{0}
	}

	shell, args := shellInvocation(c.CommandLine)
	logger.Debug("script info", "shell", shell, "cwd", c.WorkingDirectory, "commandLine", c.CommandLine)

	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = c.WorkingDirectory
	cmd.WaitDelay = killGracePeriod

	env := os.Environ()

	for k, v := range c.Env {
		logger.Debug("adding environment variable", "key", k)
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cmd.Env = env

	stdout := newCappedBuffer(maxOutputSize)
	stderr := newCappedBuffer(maxOutputSize)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return errors.Join(ErrCouldNotStart, err)
	}

	logger.Debug("process started", "pid", cmd.Process.Pid)

	started := time.Now()
	waitErr := cmd.Wait()
	duration := time.Since(started)

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	logger.Debug("process finished",
		"exitCode", exitCode,
		"duration", duration,
		"stdoutBytes", stdout.Len(),
		"stderrBytes", stderr.Len(),
	)

	if stdout.Truncated() || stderr.Truncated() {
		logger.Warn("Script output truncated", "maxBytes", maxOutputSize)
	}

	if len(stdout.Bytes()) > 0 {
		logger.Debug("script stdout", "output", stdout.String())
	}

	if waitErr != nil && ctx.Err() != nil {
		// The shell was killed because the run was cancelled.
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// Wait itself failed, there is no script exit code to judge.
		return waitErr
	}

	if slices.Contains(success, exitCode) {
		if exitCode != 0 {
			logger.Debug("exit code treated as success", "exitCode", exitCode)
		}

		return nil
	}

	return &ExitError{Command: c.Name, ExitCode: exitCode, Stderr: stderr.Bytes()}
}

// tail returns the end of b as trimmed text, capped at n bytes.
func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}

	return "..." + s[len(s)-n:]
}

// cappedBuffer keeps at most max bytes and silently discards the rest,
// recording that truncation happened. Writes never fail, so the script's
// own stdio never blocks on a full buffer.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

// Write implements io.Writer.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - b.buf.Len()

	switch {
	case remaining <= 0:
		b.truncated = true
	case len(p) > remaining:
		b.buf.Write(p[:remaining])
		b.truncated = true
	default:
		b.buf.Write(p)
	}

	return len(p), nil
}

// Bytes returns the captured output.
func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }

// String returns the captured output as a string.
func (b *cappedBuffer) String() string { return b.buf.String() }

// Len returns the number of captured bytes.
func (b *cappedBuffer) Len() int { return b.buf.Len() }

// Truncated reports whether any output was discarded.
func (b *cappedBuffer) Truncated() bool { return b.truncated }
