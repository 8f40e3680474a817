// Package procexec runs external programs for extensions. A run either
// completes, yielding captured output and an exit status, or fails to launch.
// Non-zero exit codes are results, not errors: callers inspect both stdout and
// the exit code.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Result captures a completed process run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Killed reports termination by a signal (including context cancellation).
	Killed bool
	Signal string
}

// Success reports a zero exit that was not signal-terminated.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.Killed
}

// Failure summarizes a non-successful run for notifications, preferring stderr.
func (r Result) Failure() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	if r.Killed {
		if r.Signal != "" {
			return "terminated by signal " + r.Signal
		}
		return "terminated"
	}
	return fmt.Sprintf("exit status %d", r.ExitCode)
}

// LaunchError reports that a program could not be started at all.
type LaunchError struct {
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("procexec: launch %s: %v", e.Program, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// NotFound reports whether the program was missing from PATH.
func (e *LaunchError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, os.ErrNotExist)
}

// Runner invokes external programs.
type Runner interface {
	// Run captures stdout and stderr.
	Run(ctx context.Context, program string, args ...string) (Result, error)
	// Interactive hands the terminal to the program; Result carries no output.
	Interactive(ctx context.Context, program string, args ...string) (Result, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Terminal streams for Interactive. Nil falls back to the process's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes program to completion and captures its output.
func (r *ExecRunner) Run(ctx context.Context, program string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := r.command(ctx, program, args)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	res, err := wait(cmd, program)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, err
}

// Interactive executes program attached to the terminal streams.
func (r *ExecRunner) Interactive(ctx context.Context, program string, args ...string) (Result, error) {
	cmd := r.command(ctx, program, args)
	cmd.Stdin = firstReader(r.Stdin, os.Stdin)
	cmd.Stdout = firstWriter(r.Stdout, os.Stdout)
	cmd.Stderr = firstWriter(r.Stderr, os.Stderr)
	return wait(cmd, program)
}

func (r *ExecRunner) command(ctx context.Context, program string, args []string) *exec.Cmd {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = r.Dir
	return cmd
}

func wait(cmd *exec.Cmd, program string) (Result, error) {
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, &LaunchError{Program: program, Err: err}
	}
	err := cmd.Wait()
	res := Result{}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
		if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			res.Killed = true
			res.Signal = status.Signal().String()
		}
	}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, nil
	}
	// I/O copy failures after a successful start.
	return res, fmt.Errorf("procexec: wait %s: %w", program, err)
}

func firstReader(r io.Reader, fallback io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return fallback
}

func firstWriter(w io.Writer, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
