package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecutor_Run_CapturesStdout(t *testing.T) {
	requireShell(t)

	out, err := NewExecutor().Run(context.Background(), "sh", "-c", "echo libfoo.dylib")
	require.NoError(t, err)
	assert.Equal(t, "libfoo.dylib", strings.TrimSpace(string(out)))
}

func TestExecutor_Run_NonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := NewExecutor().Run(context.Background(), "sh", "-c", "echo 'no such file' >&2; exit 3")
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "no such file", cmdErr.Stderr)
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExecutor_Run_Timeout(t *testing.T) {
	requireShell(t)

	executor := NewExecutorWithOptions(50*time.Millisecond, "", nil)
	_, err := executor.Run(context.Background(), "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecutor_Run_WorkDirAndEnv(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	executor := NewExecutorWithOptions(time.Second, dir, []string{"LIBBUNDLE_TEST=ok"})

	out, err := executor.Run(context.Background(), "sh", "-c", "echo $LIBBUNDLE_TEST; pwd")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ok", lines[0])
	assert.Contains(t, lines[1], dir[strings.LastIndex(dir, "/")+1:])
}

func TestExecutor_Run_MissingTool(t *testing.T) {
	_, err := NewExecutor().Run(context.Background(), "libbundle-definitely-missing-tool")
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, -1, cmdErr.ExitCode)
}

func TestNewExecutorWithOptions_DefaultsTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewExecutorWithOptions(0, "", nil).Timeout())
}
