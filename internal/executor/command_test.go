package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harrison/workplan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellCommandRunner(t *testing.T) {
	tests := []struct {
		name       string
		command    string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{name: "success", command: "echo hello", wantExit: 0, wantStdout: "hello\n"},
		{name: "non-zero exit", command: "echo oops >&2; exit 3", wantExit: 3, wantStderr: "oops\n"},
		{name: "separate streams", command: "echo out; echo err >&2", wantExit: 0, wantStdout: "out\n", wantStderr: "err\n"},
	}

	runner := NewShellCommandRunner("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runner.Run(context.Background(), tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExit, res.ExitCode)
			assert.Equal(t, tt.wantStdout, res.Stdout)
			assert.Equal(t, tt.wantStderr, res.Stderr)
			assert.False(t, res.TimedOut)
		})
	}
}

func TestShellCommandRunner_WorkDir(t *testing.T) {
	dir := t.TempDir()
	res, err := NewShellCommandRunner(dir).Run(context.Background(), "pwd")
	require.NoError(t, err)
	assert.Contains(t, strings.TrimSpace(res.Stdout), strings.TrimPrefix(dir, "/private"))
}

func TestShellCommandRunner_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := NewShellCommandRunner("").Run(ctx, "sleep 5")
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestShellCommandRunner_CancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := NewShellCommandRunner("").Run(ctx, "sleep 5")
	require.NoError(t, err)
	assert.False(t, res.TimedOut)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestShellCommandRunner_BoundedCapture(t *testing.T) {
	runner := &ShellCommandRunner{CaptureLimit: 10}
	res, err := runner.Run(context.Background(), "printf '%0100d' 0")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Len(t, res.Stdout, 10)
	assert.True(t, res.Truncated)
}

func TestBoundedBuffer(t *testing.T) {
	b := &boundedBuffer{limit: 4}
	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = b.Write([]byte("cdef"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "writes always report full length")
	assert.Equal(t, "abcd", b.String())
	assert.True(t, b.truncated)

	n, _ = b.Write([]byte("g"))
	assert.Equal(t, 1, n)
	assert.Equal(t, "abcd", b.String())
}

func TestDescribeDoD(t *testing.T) {
	assert.Equal(t, "check file go.sum (expect: exists)", describeDoD(models.FileCheck{Path: "go.sum", Expect: "exists"}))
	assert.Equal(t, "$ go test ./... (expect: exit 0)", describeDoD(models.CommandCheck{Cmd: "go test ./...", Expect: models.DefaultExpect}))
}
