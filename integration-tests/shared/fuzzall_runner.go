package shared

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/fuzzall/fuzzall/util/executil"
)

type FuzzallRunner struct {
	FuzzallPath    string
	DefaultWorkDir string
}

type CommandOptions struct {
	WorkDir string
	Env     []string
	Args    []string
}

// Command runs "fuzzall <command> <args>" and returns its stdout, which
// holds the machine readable output of commands like "list --json".
func (r *FuzzallRunner) Command(t *testing.T, command string, opts *CommandOptions) string {
	t.Helper()

	if opts == nil {
		opts = &CommandOptions{}
	}

	var args []string
	// Empty command means that the root command should be executed
	if command != "" {
		args = append(args, command)
	}
	args = append(args, opts.Args...)

	if opts.WorkDir == "" {
		opts.WorkDir = r.DefaultWorkDir
	}

	cmd := executil.Command(r.FuzzallPath, args...)
	cmd.Dir = opts.WorkDir
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	t.Logf("Command: %s", cmd.String())
	err := cmd.Run()
	require.NoError(t, err)

	return stdout.String()
}

type RunOptions struct {
	WorkDir string
	Env     []string
	Args    []string

	ExpectedOutputs              []*regexp.Regexp
	UnexpectedOutput             *regexp.Regexp
	TerminateAfterExpectedOutput bool
	ExpectError                  bool
}

func (r *FuzzallRunner) Run(t *testing.T, opts *RunOptions) {
	t.Helper()

	if opts.Env == nil {
		opts.Env = os.Environ()
	}

	if opts.WorkDir == "" {
		opts.WorkDir = r.DefaultWorkDir
	}

	runCtx, closeRunCtx := context.WithCancel(context.Background())
	defer closeRunCtx()
	args := append([]string{"run", "-v"}, opts.Args...)

	cmd := executil.CommandContext(
		runCtx,
		r.FuzzallPath,
		args...,
	)
	cmd.Dir = opts.WorkDir
	cmd.Env = opts.Env
	stdoutPipe, err := cmd.StdoutTeePipe(os.Stdout)
	require.NoError(t, err)
	stderrPipe, err := cmd.StderrTeePipe(os.Stderr)
	require.NoError(t, err)

	// Terminate the fuzzall process when we receive a termination signal
	// (else the test won't stop).
	TerminateOnSignal(t, cmd)

	t.Logf("Command: %s", cmd.String())
	err = cmd.Start()
	require.NoError(t, err)

	waitErrCh := make(chan error)
	// Wait for the command to exit in a go routine, so that below
	// we can cancel waiting when the context is done
	go func() {
		waitErrCh <- cmd.Wait()
	}()

	// Check that the output contains the expected output
	checker := outputChecker{
		mutex:                        &sync.Mutex{},
		lenExpectedOutputs:           len(opts.ExpectedOutputs),
		expectedOutputs:              opts.ExpectedOutputs,
		unexpectedOutput:             opts.UnexpectedOutput,
		terminateAfterExpectedOutput: opts.TerminateAfterExpectedOutput,
		terminationFunc: func() {
			err := cmd.TerminateProcessGroup()
			require.NoError(t, err)
		},
	}

	routines := errgroup.Group{}
	routines.Go(func() error {
		// The JSON summary goes to stdout.
		scanner := bufio.NewScanner(stdoutPipe)
		for scanner.Scan() {
			checker.checkOutput(t, scanner.Text())
		}
		closeErr := stdoutPipe.Close()
		require.NoError(t, closeErr)
		return nil
	})

	routines.Go(func() error {
		// Progress and failure output goes to stderr.
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			checker.checkOutput(t, scanner.Text())
		}
		closeErr := stderrPipe.Close()
		require.NoError(t, closeErr)
		return nil
	})

	select {
	case waitErr := <-waitErrCh:

		err = routines.Wait()
		require.NoError(t, err)

		if checker.hasCalledTerminationFunc && executil.IsTerminatedExitErr(waitErr) {
			return
		}
		if opts.ExpectError {
			require.Error(t, waitErr)
		} else {
			require.NoError(t, waitErr)
		}
	case <-runCtx.Done():
		require.NoError(t, runCtx.Err())
	}

	require.True(t, checker.hasSeenExpectedOutputs, "Did not see %q in the output", opts.ExpectedOutputs)
}

type outputChecker struct {
	mutex                        *sync.Mutex
	lenExpectedOutputs           int
	numSeenExpectedOutputs       int
	expectedOutputs              []*regexp.Regexp
	unexpectedOutput             *regexp.Regexp
	terminateAfterExpectedOutput bool
	terminationFunc              func()
	hasSeenExpectedOutputs       bool
	hasCalledTerminationFunc     bool
}

func (c *outputChecker) checkOutput(t *testing.T, line string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.unexpectedOutput != nil {
		if c.unexpectedOutput.MatchString(line) {
			require.FailNowf(t, "Unexpected output", "Seen unexpected output %v in line: %s", c.unexpectedOutput.String(), line)
		}
	}

	var remainingExpectedOutputs []*regexp.Regexp
	for _, expectedOutput := range c.expectedOutputs {
		if expectedOutput.MatchString(line) {
			c.numSeenExpectedOutputs += 1
		} else {
			remainingExpectedOutputs = append(remainingExpectedOutputs, expectedOutput)
		}
	}
	c.expectedOutputs = remainingExpectedOutputs

	if c.numSeenExpectedOutputs == c.lenExpectedOutputs {
		c.hasSeenExpectedOutputs = true
		if c.terminateAfterExpectedOutput && !c.hasCalledTerminationFunc {
			c.hasCalledTerminationFunc = true
			c.terminationFunc()
		}
	}
}
