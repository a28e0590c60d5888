package shared

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"testing"

	"github.com/alexflint/go-filemutex"
	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"

	"github.com/fuzzall/fuzzall/util/executil"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

var buildOnce sync.Once
var buildMutex *filemutex.FileMutex
var installDir string

// CopyTestdataDir copies the "testdata" folder in the current working directory
// to a temporary directory called "fuzzall-<name>-testdata" and returns the path.
func CopyTestdataDir(t *testing.T, name string) string {
	fileutil.ForceLongPathTempDir()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	dir, err := os.MkdirTemp("", fmt.Sprintf("fuzzall-%s-testdata-", name))
	require.NoError(t, err)

	// Get the path to the testdata dir
	testDataDir := filepath.Join(cwd, "testdata")

	// Copy the testdata dir to the temporary directory
	err = copy.Copy(testDataDir, dir)
	require.NoError(t, err)

	return dir
}

// CopyTestdataDirForE2E copies a sample project from e2e-tests/testdata
// to a temporary directory and returns the path. Unlike CopyTestdataDir
// it resolves the testdata folder relative to the repository root, so it
// works from any test package.
func CopyTestdataDirForE2E(t *testing.T, name string) string {
	fileutil.ForceLongPathTempDir()

	cwd, err := os.Getwd()
	require.NoError(t, err)
	goModPath, err := fileutil.SearchFileBackwards(cwd, "go.mod")
	require.NoError(t, err)
	repoRoot := filepath.Dir(goModPath)

	dir, err := os.MkdirTemp("", fmt.Sprintf("fuzzall-e2e-%s-", name))
	require.NoError(t, err)

	testDataDir := filepath.Join(repoRoot, "e2e-tests", "testdata", name)
	err = copy.Copy(testDataDir, dir)
	require.NoError(t, err)

	return dir
}

// BuildFuzzallInTemp builds the fuzzall binary into a temporary
// directory and returns that directory. The binary is only built once
// per test binary, and a file lock keeps test binaries running in
// parallel from racing on the build cache. The caller should clean up
// the returned directory.
func BuildFuzzallInTemp(t *testing.T) string {
	t.Helper()

	var err error
	lockFile := filepath.Join(os.TempDir(), ".fuzzall-build-lock")
	buildMutex, err = filemutex.New(lockFile)
	require.NoError(t, err)

	err = buildMutex.Lock()
	require.NoError(t, err)

	defer func() {
		err = buildMutex.Unlock()
		require.NoError(t, err)
	}()

	buildOnce.Do(func() {
		// Create directory for the binary
		installDir, err = os.MkdirTemp("", "fuzzall-")
		require.NoError(t, err)

		cwd, err := os.Getwd()
		require.NoError(t, err)
		goModPath, err := fileutil.SearchFileBackwards(cwd, "go.mod")
		require.NoError(t, err)

		// Build fuzzall in the install directory
		cmd := executil.Command("go", "build", "-o", FuzzallExecutablePath(filepath.Join(installDir, "bin")), "./cmd/fuzzall")
		cmd.Dir = filepath.Dir(goModPath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err = cmd.Run()
		require.NoError(t, err)
	})

	return installDir
}

// FuzzallExecutablePath returns the path of the fuzzall executable in
// the given directory.
func FuzzallExecutablePath(binDir string) string {
	path := filepath.Join(binDir, "fuzzall")
	if runtime.GOOS == "windows" {
		path += ".exe"
	}
	return path
}

// TerminateOnSignal terminates the command's process group when the
// test binary receives a termination signal (else the fuzzing processes
// keep running after the test is interrupted).
func TerminateOnSignal(t *testing.T, cmd *executil.Cmd) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		s := <-sigs
		t.Logf("Received %s", s.String())

		// Re-raise the signal for other handlers
		signal.Stop(sigs)
		p, err := os.FindProcess(os.Getpid())
		require.NoError(t, err)
		err = p.Signal(s)
		require.NoError(t, err)

		// Terminate the command's process group
		err = cmd.TerminateProcessGroup()
		require.NoError(t, err)
	}()
}
