package run

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuzzall/fuzzall/integration-tests/shared"
	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

var installDir string

func TestMain(m *testing.M) {
	defer fileutil.Cleanup(installDir)
	m.Run()
}

func TestIntegration_Run(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	// Build fuzzall
	installDir = shared.BuildFuzzallInTemp(t)
	fuzzall := shared.FuzzallExecutablePath(filepath.Join(installDir, "bin"))

	// Setup testdata
	dir := shared.CopyTestdataDir(t, "run")
	t.Cleanup(func() { fileutil.Cleanup(dir) })
	t.Logf("executing fuzz run integration test in %s", dir)

	runner := shared.FuzzallRunner{
		FuzzallPath:    fuzzall,
		DefaultWorkDir: dir,
	}

	// FuzzParseComment crashes on one of its seed inputs, --continue
	// keeps the passing fuzz tests running anyway.
	errorFile := filepath.Join(dir, "errors.log")
	runner.Run(t, &shared.RunOptions{
		Args: []string{"--continue", "--error-file", errorFile},
		ExpectedOutputs: []*regexp.Regexp{
			regexp.MustCompile(`Found 3 fuzz functions to test`),
			regexp.MustCompile(`Running with \d+ parallel jobs, 1s per test`),
			regexp.MustCompile(`FAILED: FuzzParseComment`),
			regexp.MustCompile(`Fuzzing completed: 3 total, 1 failed`),
		},
		ExpectError: true,
	})

	// The failure must also have been appended to the error file
	content, err := os.ReadFile(errorFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "FAILED: FuzzParseComment")
	assert.Contains(t, string(content), "Total of 1 fuzz tests failed")
}

func TestIntegration_Run_WithPatterns(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	installDir = shared.BuildFuzzallInTemp(t)
	fuzzall := shared.FuzzallExecutablePath(filepath.Join(installDir, "bin"))

	dir := shared.CopyTestdataDir(t, "run")
	t.Cleanup(func() { fileutil.Cleanup(dir) })

	runner := shared.FuzzallRunner{
		FuzzallPath:    fuzzall,
		DefaultWorkDir: dir,
	}

	runner.Run(t, &shared.RunOptions{
		Args: []string{"FuzzReverse", "FuzzTrimPrefix"},
		ExpectedOutputs: []*regexp.Regexp{
			regexp.MustCompile(`Found 2 fuzz functions to test`),
			regexp.MustCompile(`All fuzz tests completed successfully`),
		},
		UnexpectedOutput: regexp.MustCompile(`FAILED:`),
	})
}

func TestIntegration_Run_TerminatesOnSignal(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	installDir = shared.BuildFuzzallInTemp(t)
	fuzzall := shared.FuzzallExecutablePath(filepath.Join(installDir, "bin"))

	dir := shared.CopyTestdataDir(t, "run")
	t.Cleanup(func() { fileutil.Cleanup(dir) })

	runner := shared.FuzzallRunner{
		FuzzallPath:    fuzzall,
		DefaultWorkDir: dir,
	}

	// Give the passing fuzz tests enough time that the run is still
	// going when the process group is terminated.
	runner.Run(t, &shared.RunOptions{
		Args: []string{"--time", "120", "FuzzReverse", "FuzzTrimPrefix"},
		ExpectedOutputs: []*regexp.Regexp{
			regexp.MustCompile(`Running with \d+ parallel jobs, 120s per test`),
		},
		TerminateAfterExpectedOutput: true,
		ExpectError:                  true,
	})
}

func TestIntegration_List(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	installDir = shared.BuildFuzzallInTemp(t)
	fuzzall := shared.FuzzallExecutablePath(filepath.Join(installDir, "bin"))

	dir := shared.CopyTestdataDir(t, "run")
	t.Cleanup(func() { fileutil.Cleanup(dir) })

	runner := shared.FuzzallRunner{
		FuzzallPath:    fuzzall,
		DefaultWorkDir: dir,
	}

	stdout := runner.Command(t, "list", &shared.CommandOptions{Args: []string{"--json"}})

	var targets []*scanner.Target
	err := json.Unmarshal([]byte(stdout), &targets)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "FuzzTrimPrefix", targets[0].Name)
	assert.Equal(t, "FuzzParseComment", targets[1].Name)
	assert.Equal(t, "FuzzReverse", targets[2].Name)
}

func TestIntegration_Init(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	installDir = shared.BuildFuzzallInTemp(t)
	fuzzall := shared.FuzzallExecutablePath(filepath.Join(installDir, "bin"))

	dir, err := os.MkdirTemp("", "fuzzall-init-test-")
	require.NoError(t, err)
	t.Cleanup(func() { fileutil.Cleanup(dir) })

	runner := shared.FuzzallRunner{
		FuzzallPath:    fuzzall,
		DefaultWorkDir: dir,
	}

	runner.Command(t, "init", nil)

	exists, err := fileutil.Exists(filepath.Join(dir, config.ProjectConfigFile))
	require.NoError(t, err)
	require.True(t, exists)
}
