package grmpy

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// waitDelay bounds how long Run waits for the output pipe after the
// process got killed, grandchildren may keep it open.
const waitDelay = 5 * time.Second

// Command describes an external program call. Args are passed as is,
// no shell is involved.
type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// Result of a finished Command.
type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Output  *bytes.Buffer // combined stdout and stderr
	Err     error
}

// ExitCode returns the process exit code or -1 if it did not exit.
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Run executes the command synchronously and captures its combined
// output. Launch errors, non zero exit and timeout end up in Result.Err.
func Run(ctx context.Context, proto Command) Result {
	result := Result{
		Path:   proto.Path,
		Args:   append([]string(nil), proto.Args...),
		Output: &bytes.Buffer{},
	}

	if proto.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, result.Path, result.Args...)
	if len(proto.Env) > 0 {
		cmd.Env = append(os.Environ(), proto.Env...)
	}
	cmd.Stdout = result.Output
	cmd.Stderr = result.Output
	cmd.WaitDelay = waitDelay

	result.Started = time.Now().UTC()
	result.Err = cmd.Run()
	result.Stopped = time.Now().UTC()
	result.State = cmd.ProcessState
	if result.Err != nil && ctx.Err() != nil {
		result.Err = &TimeoutError{Err: result.Err, Cause: ctx.Err()}
	}
	return result
}

// TimeoutError is returned when the command was killed because its
// context expired.
type TimeoutError struct {
	Err   error
	Cause error
}

func (e *TimeoutError) Error() string {
	return "command killed: " + e.Cause.Error() + ": " + e.Err.Error()
}

func (e *TimeoutError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}
