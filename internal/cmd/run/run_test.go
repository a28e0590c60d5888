package run

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/internal/testutil"
	"github.com/fuzzall/fuzzall/pkg/dependencies"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/pkg/mocks"
)

var testOut io.ReadWriter

func TestMain(m *testing.M) {
	// capture log output
	testOut = bytes.NewBuffer([]byte{})
	oldOut := log.Output
	log.Output = testOut
	viper.Set("verbose", true)

	m.Run()

	log.Output = oldOut
}

// stubRunner stands in for the fuzzing processes. It records which
// targets were run and produces the log output a real failing run
// would leave behind.
type stubRunner struct {
	mutex   sync.Mutex
	runs    []string
	failFor map[string]bool
}

func (r *stubRunner) Run(ctx context.Context, target *scanner.Target, logPath string) error {
	r.mutex.Lock()
	r.runs = append(r.runs, target.Name)
	r.mutex.Unlock()

	if r.failFor[target.Name] {
		output := fmt.Sprintf("--- FAIL: %s (0.03s)\n    %s:7: found a crash\n",
			target.Name, filepath.Base(target.SourceFile))
		err := os.WriteFile(logPath, []byte(output), 0o644)
		if err != nil {
			return err
		}
		return errors.New("exit status 1")
	}

	return os.WriteFile(logPath, []byte("PASS\n"), 0o644)
}

func TestRunCmd(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runnerMock := &mocks.TargetRunnerMock{}
	runnerMock.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runnerMock}), os.Stdin)
	require.NoError(t, err)
	runnerMock.AssertNumberOfCalls(t, "Run", 3)

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "Found 3 fuzz functions to test")
	assert.Contains(t, string(output), "All fuzz tests completed successfully")
}

func TestRunCmd_Failure(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runner := &stubRunner{failFor: map[string]bool{"FuzzParseQuery": true}}

	// With as many jobs as targets everything is admitted before the
	// failure is observed, so all three targets run.
	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "--jobs", "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdutils.ErrSilent))
	assert.Len(t, runner.runs, 3)

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "FAILED: FuzzParseQuery in "+filepath.Join("parser", "parser_test.go"))
	assert.Contains(t, string(output), "Details: --- FAIL: FuzzParseQuery")
	assert.Contains(t, string(output), "Fuzzing completed: 3 total, 1 failed")
	assert.Contains(t, string(output), "Tests failed")
}

func TestRunCmd_ContinueOnFailure(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runner := &stubRunner{failFor: map[string]bool{"FuzzParseQuery": true}}

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "--continue", "--jobs", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdutils.ErrSilent))

	// The failure must not stop the remaining targets
	assert.ElementsMatch(t, []string{"FuzzRoundTrip", "FuzzHandleRequest", "FuzzParseQuery"}, runner.runs)

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "Fuzzing completed: 3 total, 1 failed")
}

func TestRunCmd_ErrorFile(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	errorFile := filepath.Join(t.TempDir(), "errors.log")
	runner := &stubRunner{failFor: map[string]bool{"FuzzParseQuery": true}}

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "--jobs", "3", "--error-file", errorFile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdutils.ErrSilent))

	content, err := os.ReadFile(errorFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "FAILED: FuzzParseQuery")
	assert.Contains(t, string(content), "---")
	assert.Contains(t, string(content), "Total of 1 fuzz tests failed")

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "Errors have been logged to: "+errorFile)
}

func TestRunCmd_JSON(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runnerMock := &mocks.TargetRunnerMock{}
	runnerMock.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	output, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runnerMock}),
		os.Stdin, "--json")
	require.NoError(t, err)
	assert.Contains(t, output, `"total": 3`)
	assert.Contains(t, output, `"failed": 0`)
}

func TestRunCmd_Patterns(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runner := &stubRunner{}

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "--jobs", "1", "FuzzParse*")
	require.NoError(t, err)
	assert.Equal(t, []string{"FuzzParseQuery"}, runner.runs)

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "Found 1 fuzz functions to test")
}

func TestRunCmd_PatternsPartlyUnmatched(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runner := &stubRunner{}

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "--jobs", "1", "FuzzParse*", "FuzzNope*")
	require.NoError(t, err)
	assert.Equal(t, []string{"FuzzParseQuery"}, runner.runs)

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "No fuzz functions match FuzzNope*")
}

func TestRunCmd_PatternsNoMatch(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runner := &stubRunner{}

	// Stdin is not a terminal in tests, so an unmatched pattern is a
	// usage error instead of an interactive selection.
	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "FuzzNope*")
	require.Error(t, err)
	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
	assert.ErrorContains(t, err, "No fuzz functions match FuzzNope*")
	assert.Empty(t, runner.runs)
}

func TestRunCmd_InvalidPattern(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	runner := &stubRunner{}

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{runner: runner}),
		os.Stdin, "Fuzz[Parse")
	require.Error(t, err)
	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
	assert.ErrorContains(t, err, `invalid pattern "Fuzz[Parse"`)
	assert.Empty(t, runner.runs)
}

func TestRunCmd_NoTargets(t *testing.T) {
	_, cleanup := testutil.ChdirToTempDir("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin)
	require.NoError(t, err)

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "No fuzz functions found")
}

func TestRunCmd_InvalidTime(t *testing.T) {
	_, cleanup := testutil.ChdirToTempDir("run-cmd-test")
	defer cleanup()

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--time", "0")
	require.Error(t, err)
	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
	assert.ErrorContains(t, err, "the fuzzing time can't be zero")
}

func TestRunCmd_InvalidJobs(t *testing.T) {
	_, cleanup := testutil.ChdirToTempDir("run-cmd-test")
	defer cleanup()

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--jobs", "0")
	require.Error(t, err)
	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
	assert.ErrorContains(t, err, "at least one parallel job is required")
}

func TestRunCmd_ScanError(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)

	scannerMock := &mocks.ScannerMock{}
	scannerMock.On("ScanTargets", mock.Anything).Return(nil, errors.New("walk failed"))

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(&runOptions{scanner: scannerMock}), os.Stdin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdutils.ErrSilent))

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "walk failed")
}

func TestRunCmd_GoMissing(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)
	dependencies.OverwriteUninstalled(dependencies.GetDep(dependencies.GO))

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdutils.ErrSilent))

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), fmt.Sprintf(dependencies.MessageMissing, "go"))
}

func TestRunCmd_GoTooOld(t *testing.T) {
	_, cleanup := testutil.BootstrapExampleProjectForTest("run-cmd-test")
	defer cleanup()
	dependencies.MockAllDeps(t)
	version := dependencies.OverwriteGetVersionWith0(dependencies.GetDep(dependencies.GO))

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdutils.ErrSilent))

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	expected := fmt.Sprintf(dependencies.MessageVersion, "go", "1.18.0", version.String())
	assert.Contains(t, string(output), expected)
}

func TestGoMaxProcs(t *testing.T) {
	assert.Equal(t, 4, goMaxProcs(8, 2))
	assert.Equal(t, 1, goMaxProcs(8, 16))
	assert.Equal(t, 1, goMaxProcs(4, 3))
	assert.Equal(t, 1, goMaxProcs(1, 1))
	assert.Equal(t, 4, goMaxProcs(16, 4))
}
