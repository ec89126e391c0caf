package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultCaptureLimit bounds how many bytes of stdout and of stderr are kept
// per command.
const DefaultCaptureLimit = 64 * 1024

// CommandResult is what a CommandRunner observed. Non-zero exits and
// timeouts are results, not errors.
type CommandResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Truncated bool // Either stream exceeded the capture limit
}

// CommandRunner executes an opaque command string.
// Run returns an error only when the command could not be invoked at all.
type CommandRunner interface {
	Run(ctx context.Context, command string) (CommandResult, error)
}

// ShellCommandRunner executes commands via the system shell.
type ShellCommandRunner struct {
	WorkDir      string // Working directory for commands (empty = current dir)
	CaptureLimit int    // Per-stream capture bound (0 = DefaultCaptureLimit)
}

// NewShellCommandRunner creates a CommandRunner that executes real shell commands.
func NewShellCommandRunner(workDir string) *ShellCommandRunner {
	return &ShellCommandRunner{WorkDir: workDir, CaptureLimit: DefaultCaptureLimit}
}

// Run executes command via sh -c. Cancelling ctx or hitting its deadline
// kills the process; only a deadline is reported as TimedOut.
func (r *ShellCommandRunner) Run(ctx context.Context, command string) (CommandResult, error) {
	limit := r.CaptureLimit
	if limit <= 0 {
		limit = DefaultCaptureLimit
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}
	stdout := &boundedBuffer{limit: limit}
	stderr := &boundedBuffer{limit: limit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := CommandResult{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	res.Truncated = stdout.truncated || stderr.truncated

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		return res, nil
	case ctx.Err() != nil:
		return res, nil
	case err == nil, errors.As(err, &exitErr), errors.Is(err, exec.ErrWaitDelay):
		return res, nil
	default:
		return res, err
	}
}

// boundedBuffer keeps the first limit bytes written and silently drops the
// rest. It never reports a short write, so the child is not killed by EPIPE.
type boundedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}
