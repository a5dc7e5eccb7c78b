package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	e := New()
	res := e.Run(context.Background(), "echo hello", Options{})
	require.Equal(t, 0, res.ExitCode)
	require.Contains(t, res.Stdout, "hello")
}

func TestRunNonZeroExit(t *testing.T) {
	e := New()
	res := e.Run(context.Background(), "exit 7", Options{})
	require.Equal(t, 7, res.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	e := New()
	res := e.Run(context.Background(), "sleep 5", Options{Timeout: 50 * time.Millisecond})
	require.NotEqual(t, 0, res.ExitCode)
	require.Contains(t, res.Stderr, "timed out")
}

func TestCheck(t *testing.T) {
	e := New()
	require.True(t, e.Check(context.Background(), "true", Options{}))
	require.False(t, e.Check(context.Background(), "false", Options{}))
}

func TestRunReturnsPromptlyForBackgroundedCommand(t *testing.T) {
	e := New()
	start := time.Now()
	res := e.Run(context.Background(), "sh -c 'sleep 5 &' ", Options{Timeout: 2 * time.Second})
	elapsed := time.Since(start)
	require.Equal(t, 0, res.ExitCode)
	require.Less(t, elapsed, 2*time.Second, "Run should not block on pipes held open by a backgrounded grandchild")
}

func TestRunPassesEnv(t *testing.T) {
	e := New()
	res := e.Run(context.Background(), `echo "$MY_VAR"`, Options{Env: map[string]string{"MY_VAR": "fromoverlay"}})
	require.Equal(t, 0, res.ExitCode)
	require.Contains(t, res.Stdout, "fromoverlay")
}
