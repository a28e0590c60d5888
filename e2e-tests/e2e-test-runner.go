package e2e

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fuzzall/fuzzall/integration-tests/shared"
	"github.com/fuzzall/fuzzall/pkg/detect_ci"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

type Assertion func(*testing.T, CommandOutput)

type CommandOutput struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Stdall   string // Combined stdout and stderr output for simpler assertions
	Workdir  fs.FS  // Expose files from the test folder
}

type TestCase struct {
	Description  string
	Command      string
	Environment  []string
	Args         []string
	SampleFolder []string
	Assert       Assertion
}

type testCaseRunOptions struct {
	command      string
	args         string
	sampleFolder string
}

// RunTests runs all test cases generated from the input combinations.
func RunTests(t *testing.T, testCases []TestCase) {
	for _, testCase := range testCases {
		runTest(t, &testCase)
	}
}

// runTest generates 1...n tests from possible combinations in a TestCase.
func runTest(t *testing.T, testCase *TestCase) {
	if testing.Short() {
		t.Skip("skipping e2e tests in short mode")
	}

	if detect_ci.IsCI() && os.Getenv("E2E_TESTS_MATRIX") == "" {
		t.Skip("Skipping e2e tests. You need to set the E2E_TESTS_MATRIX env var to run this test.")
	}

	// The install directory is shared between the tests of a package, so
	// it is not removed here.
	installDir := shared.BuildFuzzallInTemp(t)
	fuzzallPath := shared.FuzzallExecutablePath(filepath.Join(installDir, "bin"))

	fmt.Println("Running test: ", testCase.Description)

	// Set defaults
	if len(testCase.Args) == 0 {
		testCase.Args = []string{""}
	}

	if len(testCase.SampleFolder) == 0 {
		testCase.SampleFolder = []string{"empty"}
	}

	// Generate all the combinations we want to test
	testCaseRuns := []testCaseRunOptions{}
	for _, args := range testCase.Args {
		for _, contextFolder := range testCase.SampleFolder {
			testCaseRuns = append(testCaseRuns, testCaseRunOptions{
				command:      testCase.Command,
				args:         args,
				sampleFolder: contextFolder,
			})
		}
	}

	for index, testCaseRun := range testCaseRuns {
		t.Run(fmt.Sprintf("[%d/%d] fuzzall %s %s", index+1, len(testCaseRuns), testCaseRun.command, testCaseRun.args), func(t *testing.T) {
			contextFolder := shared.CopyTestdataDirForE2E(t, testCaseRun.sampleFolder)
			defer fileutil.Cleanup(contextFolder)

			// exec.Cmd can't handle empty args
			var cmd *exec.Cmd
			if len(testCaseRun.args) > 0 {
				cmd = exec.Command(fuzzallPath, testCaseRun.command, testCaseRun.args)
			} else {
				cmd = exec.Command(fuzzallPath, testCaseRun.command)
			}

			cmd.Env = append(os.Environ(), testCase.Environment...)
			cmd.Dir = contextFolder

			stdout := bytes.Buffer{}
			errout := bytes.Buffer{}
			cmd.Stdout = &stdout
			cmd.Stderr = &errout

			err := cmd.Run()
			if err != nil {
				t.Logf("Error running command: %v", err)
			}

			testCase.Assert(t, CommandOutput{
				ExitCode: cmd.ProcessState.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   errout.String(),
				Stdall:   stdout.String() + errout.String(),
				Workdir:  os.DirFS(contextFolder),
			})
		})
	}
}
