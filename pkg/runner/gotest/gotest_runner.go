package gotest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/util/envutil"
	"github.com/fuzzall/fuzzall/util/executil"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

type RunnerOptions struct {
	// RootDir is the project root the scanner ran in. It becomes the
	// working directory of the go tool.
	RootDir string
	// Duration is the fuzzing time per target, passed via -fuzztime.
	Duration time.Duration
	// GoMaxProcs is set as GOMAXPROCS in the environment of each fuzzing
	// process so that parallel jobs share the available cores.
	GoMaxProcs int
	// ConfigDir is exported as FUZZ_CONFIG_DIR to the fuzzing process.
	// It's opaque to us, only the fuzz tests themselves interpret it.
	ConfigDir string
	// EnvVars are additional KEY=VALUE pairs for the fuzzing process.
	EnvVars []string
}

func (options *RunnerOptions) ValidateOptions() error {
	if options.RootDir == "" {
		return errors.New("A root directory must be specified")
	}
	if options.Duration <= 0 {
		return errors.New("The fuzzing duration must be positive")
	}
	if options.GoMaxProcs < 1 {
		return errors.New("GOMAXPROCS must be at least 1")
	}
	return nil
}

type Runner struct {
	*RunnerOptions
}

func NewRunner(options *RunnerOptions) *Runner {
	return &Runner{options}
}

// Run executes the fuzz test of a single target with the go tool and
// waits for it to finish. The combined stdout and stderr of the fuzzing
// process is captured in logPath. The output is not interpreted, a
// non-zero exit means the target failed and is returned as a
// cmdutils.ExecError. When ctx is cancelled, the process group of the
// fuzzing process is terminated and ctx's error is returned in place
// of the exit error.
func (r *Runner) Run(ctx context.Context, target *scanner.Target, logPath string) error {
	err := r.ValidateOptions()
	if err != nil {
		return err
	}

	packagePath, err := r.packagePath(target)
	if err != nil {
		return err
	}

	timeoutSeconds := strconv.FormatInt(int64(r.Duration.Seconds()), 10)
	args := []string{"go", "test", packagePath,
		"-run=^" + target.Name + "$",
		"-fuzz=^" + target.Name + "$",
		"-fuzztime=" + timeoutSeconds + "s",
	}

	// The environment we run the fuzzer in
	env, err := r.fuzzerEnvironment()
	if err != nil {
		return err
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer logFile.Close()

	cmd := executil.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.RootDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env, err = envutil.Copy(os.Environ(), env)
	if err != nil {
		return err
	}

	// Only print the variables we set ourselves to avoid leaking
	// arbitrary host environment variables into the log
	log.Debugf("Command: %s", envutil.QuotedCommandWithEnv(cmd.Args, env))

	err = cmd.Run()
	if err != nil {
		if cmd.TerminatedAfterContextDone() {
			// The fuzzing process didn't fail, it was terminated
			// because the run is shutting down
			return errors.WithStack(ctx.Err())
		}
		return cmdutils.WrapExecError(errors.WithStack(err), cmd.Cmd)
	}
	return nil
}

// packagePath returns the package argument for the go tool. Inside a Go
// module relative paths with a "./" prefix are used. Without a go.mod
// at the root we fall back to the absolute directory, which the go tool
// accepts in GOPATH mode.
func (r *Runner) packagePath(target *scanner.Target) (string, error) {
	exists, err := fileutil.Exists(filepath.Join(r.RootDir, "go.mod"))
	if err != nil {
		return "", err
	}
	if !exists {
		absDir, err := filepath.Abs(filepath.Join(r.RootDir, target.ModuleDir))
		if err != nil {
			return "", errors.WithStack(err)
		}
		return absDir, nil
	}

	if target.ModuleDir == "." {
		return ".", nil
	}
	return "./" + filepath.ToSlash(target.ModuleDir), nil
}

func (r *Runner) fuzzerEnvironment() ([]string, error) {
	var env []string
	var err error

	env, err = envutil.Copy(env, r.EnvVars)
	if err != nil {
		return nil, err
	}

	env, err = envutil.Setenv(env, "GOMAXPROCS", strconv.Itoa(r.GoMaxProcs))
	if err != nil {
		return nil, err
	}

	if r.ConfigDir != "" {
		env, err = envutil.Setenv(env, "FUZZ_CONFIG_DIR", r.ConfigDir)
		if err != nil {
			return nil, err
		}
	}

	return env, nil
}
