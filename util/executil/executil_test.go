//go:build !windows

package executil

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	err := Command("true").Run()
	require.NoError(t, err)
}

func TestRun_ExitError(t *testing.T) {
	err := Command("false").Run()
	require.Error(t, err)
	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
	assert.NotEqual(t, 0, exitErr.ExitCode())
}

func TestStdoutTeePipe(t *testing.T) {
	var tee bytes.Buffer
	cmd := Command("echo", "hello")
	pipe, err := cmd.StdoutTeePipe(&tee)
	require.NoError(t, err)

	err = cmd.Run()
	require.NoError(t, err)

	// Wait closed the write end, so the read drains to EOF
	out, err := io.ReadAll(pipe)
	require.NoError(t, err)
	err = pipe.Close()
	require.NoError(t, err)

	assert.Equal(t, "hello\n", string(out))
	assert.Equal(t, "hello\n", tee.String())
}

func TestIsTerminatedExitErr(t *testing.T) {
	err := Command("false").Run()
	require.Error(t, err)
	assert.False(t, IsTerminatedExitErr(err))
}

func TestCommandContext_AlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := CommandContext(ctx, "sleep", "10")
	err := cmd.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, cmd.Process)
}

func TestCommandContext_TerminatesProcessGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := CommandContext(ctx, "sleep", "10")
	err := cmd.Start()
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	cancel()

	select {
	case err := <-waitErr:
		require.Error(t, err)
		assert.True(t, cmd.TerminatedAfterContextDone())
	case <-time.After(10 * time.Second):
		t.Fatal("process was not terminated after the context became done")
	}
}
