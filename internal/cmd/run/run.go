package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fuzzall/fuzzall/internal/cmd/run/report_handler"
	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/internal/completion"
	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/internal/scheduler"
	"github.com/fuzzall/fuzzall/pkg/dependencies"
	"github.com/fuzzall/fuzzall/pkg/dialog"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/pkg/messaging"
	"github.com/fuzzall/fuzzall/pkg/runner/gotest"
	"github.com/fuzzall/fuzzall/util/cpuutil"
	"github.com/fuzzall/fuzzall/util/fileutil"
	"github.com/fuzzall/fuzzall/util/stringutil"
)

type runOptions struct {
	Time              uint   `mapstructure:"time"`
	Jobs              uint   `mapstructure:"jobs"`
	ErrorFile         string `mapstructure:"error-file"`
	ContinueOnFailure bool   `mapstructure:"continue-on-failure"`
	ConfigDir         string `mapstructure:"config-dir"`
	PrintJSON         bool   `mapstructure:"print-json"`

	ProjectDir string
	patterns   []string

	// Overridable for tests, they run against stub fuzzing processes
	scanner scanner.Scanner
	runner  scheduler.TargetRunner
}

func (opts *runOptions) validate() error {
	if opts.Time == 0 {
		msg := "invalid argument \"0\" for \"--time\" flag: the fuzzing time can't be zero"
		return cmdutils.WrapIncorrectUsageError(errors.New(msg))
	}

	if opts.Jobs == 0 {
		msg := "invalid argument \"0\" for \"--jobs\" flag: at least one parallel job is required"
		return cmdutils.WrapIncorrectUsageError(errors.New(msg))
	}

	return nil
}

type runCmd struct {
	*cobra.Command
	opts *runOptions

	reportHandler *report_handler.ReportHandler
}

type jobScheduler interface {
	Run(context.Context) error
	Cleanup(context.Context)
}

func New() *cobra.Command {
	return newWithOptions(&runOptions{})
}

func newWithOptions(opts *runOptions) *cobra.Command {
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "run [flags] [<fuzz function>...]",
		Short: "Run the fuzz functions of the project",
		Long: `This command runs the fuzz functions found in the test files of the
project. Every fuzz function is executed in its own test process for a
fixed amount of time, with up to --jobs of them fuzzing in parallel.

When a fuzz test fails, no new ones are started and the run ends once
the ones already fuzzing are finished. Use --continue to keep going
instead and collect all failures in one go.

By default all fuzz functions are run. To only run some of them, pass
their names or glob patterns matching their names:

    fuzzall run FuzzParseQuery 'FuzzParse*'

The output of every fuzz test is captured to a separate log file. The
output of failing fuzz tests is printed and, if --error-file is set,
appended to that file.`,
		ValidArgsFunction: completion.ValidEntryPoints,
		Args:              cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()

			err := config.FindAndParseProjectConfig(opts)
			if err != nil {
				log.Errorf(err, "Failed to parse fuzzall.yaml: %v", err.Error())
				return cmdutils.WrapSilentError(err)
			}

			opts.patterns = args

			return opts.validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := runCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	// Note: If a flag should be configurable via fuzzall.yaml as well,
	// bind it to viper in the PreRunE function.
	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddTimeFlag,
		cmdutils.AddJobsFlag,
		cmdutils.AddErrorFileFlag,
		cmdutils.AddContinueFlag,
		cmdutils.AddConfigDirFlag,
		cmdutils.AddPrintJSONFlag,
	)
	return cmd
}

func (c *runCmd) run() error {
	err := c.checkDependencies()
	if err != nil {
		return err
	}

	targets, err := c.discoverTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	cores := cpuutil.NumCPU()
	jobs := int(c.opts.Jobs)
	system := cases.Title(language.Und).String(runtime.GOOS)
	if runtime.GOOS == "darwin" {
		system = "macOS"
	}
	log.Debugf("Detected %d CPU cores on %s, using %d parallel fuzz jobs", cores, system, jobs)

	log.Infof("Found %d fuzz functions to test", len(targets))
	log.Infof("Running with %d parallel jobs, %ds per test", jobs, c.opts.Time)
	log.Infof("Each fuzz test will use up to %d CPU cores (GOMAXPROCS)", goMaxProcs(cores, jobs))

	if len(targets) > 50 {
		log.Info("Large number of fuzz tests detected - this may take a while")
		if !viper.GetBool("verbose") {
			log.Info("Consider using -v for verbose progress updates")
		}
	}

	// One log file per job, in a directory which doesn't survive the
	// run. Failure output is preserved through the error file instead.
	logDir, err := os.MkdirTemp("", "fuzzall-run-")
	if err != nil {
		return errors.WithStack(err)
	}
	defer fileutil.Cleanup(logDir)

	// Initialize the report handler. Only do this right before the
	// fuzzing starts, because it stores the timestamp the total run
	// time is measured from.
	c.reportHandler, err = report_handler.NewReportHandler(&report_handler.ReportHandlerOptions{
		TotalTargets: len(targets),
		PrintJSON:    c.opts.PrintJSON,
		Verbose:      viper.GetBool("verbose"),
		ErrorLogPath: c.opts.ErrorFile,
	})
	if err != nil {
		return err
	}

	startedAt := time.Now()
	err = c.runTargets(targets, logDir, cores)
	if err != nil {
		return err
	}

	summary := c.reportHandler.Summary()

	if c.opts.PrintJSON {
		s, err := stringutil.ToJSONString(summary)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(c.OutOrStdout(), s)
	} else {
		c.reportHandler.PrintFinalMetrics()
	}

	messaging.NotifyRunFinished(summary, time.Since(startedAt))

	if summary.Failed > 0 {
		if c.opts.ErrorFile != "" {
			c.reportHandler.ErrorSink.Write(fmt.Sprintf("Total of %d fuzz tests failed", summary.Failed))
			log.Error(nil, fmt.Sprintf("Errors have been logged to: %s", c.opts.ErrorFile))
		}
		err := errors.New("Tests failed")
		log.Error(err, err.Error())
		return cmdutils.WrapSilentError(err)
	}

	log.Success("All fuzz tests completed successfully")
	return nil
}

func (c *runCmd) checkDependencies() error {
	deps := []dependencies.Key{
		dependencies.GO,
	}
	depsErr := dependencies.Check(deps)
	if depsErr != nil {
		log.Error(depsErr)
		return cmdutils.WrapSilentError(depsErr)
	}
	return nil
}

func (c *runCmd) discoverTargets() ([]*scanner.Target, error) {
	targetScanner := c.opts.scanner
	if targetScanner == nil {
		targetScanner = scanner.NewTargetScanner()
	}

	targets, err := targetScanner.ScanTargets(c.opts.ProjectDir)
	if err != nil {
		log.Error(err, err.Error())
		return nil, cmdutils.WrapSilentError(err)
	}
	if len(targets) == 0 {
		log.Info("No fuzz functions found")
		return nil, nil
	}

	if len(c.opts.patterns) == 0 {
		return targets, nil
	}
	return c.filterTargets(targets)
}

// filterTargets reduces the discovered targets to the ones matching
// the name patterns given on the command line.
func (c *runCmd) filterTargets(targets []*scanner.Target) ([]*scanner.Target, error) {
	notMatched := map[string]struct{}{}
	for _, pattern := range c.opts.patterns {
		notMatched[pattern] = struct{}{}
	}

	var filtered []*scanner.Target
	for _, target := range targets {
		for _, pattern := range c.opts.patterns {
			matched, err := filepath.Match(pattern, target.Name)
			if err != nil {
				msg := fmt.Sprintf("invalid pattern %q for <fuzz function> argument", pattern)
				return nil, cmdutils.WrapIncorrectUsageError(errors.New(msg))
			}
			if matched {
				delete(notMatched, pattern)
				filtered = append(filtered, target)
				break
			}
		}
	}

	if len(filtered) > 0 {
		if len(notMatched) > 0 {
			patterns := maps.Keys(notMatched)
			slices.Sort(patterns)
			log.Warnf("No fuzz functions match %s", strings.Join(patterns, ", "))
		}
		return filtered, nil
	}

	// Nothing matched at all. In a terminal the user gets to pick from
	// what was actually found, otherwise this is an error.
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		msg := fmt.Sprintf("No fuzz functions match %s", strings.Join(c.opts.patterns, ", "))
		return nil, cmdutils.WrapIncorrectUsageError(errors.New(msg))
	}

	log.Warnf("No fuzz functions match %s", strings.Join(c.opts.patterns, ", "))
	return c.selectTargets(targets)
}

func (c *runCmd) selectTargets(targets []*scanner.Target) ([]*scanner.Target, error) {
	// Pad the names so that the directory column lines up
	var names []string
	for _, target := range targets {
		names = append(names, target.Name)
	}
	maxLen := stringutil.MaxLen(names)

	items := map[string]*scanner.Target{}
	var entries []string
	for i, target := range targets {
		entry := fmt.Sprintf("%-*s [%s]", maxLen, names[i], target.ModuleDir)
		items[entry] = target
		entries = append(entries, entry)
	}

	selected, err := dialog.MultiSelect("Select the fuzz functions to run", entries)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		log.Print("No fuzz functions selected")
		return nil, nil
	}

	var filtered []*scanner.Target
	for _, entry := range selected {
		filtered = append(filtered, items[entry])
	}
	return filtered, nil
}

func (c *runCmd) runTargets(targets []*scanner.Target, logDir string, cores int) error {
	targetRunner := c.opts.runner
	if targetRunner == nil {
		targetRunner = gotest.NewRunner(&gotest.RunnerOptions{
			RootDir:    c.opts.ProjectDir,
			Duration:   time.Duration(c.opts.Time) * time.Second,
			GoMaxProcs: goMaxProcs(cores, int(c.opts.Jobs)),
			ConfigDir:  c.opts.ConfigDir,
		})
	}

	sched := scheduler.NewScheduler(&scheduler.Options{
		Targets:           targets,
		Runner:            targetRunner,
		Handler:           c.reportHandler,
		LogDir:            logDir,
		MaxParallelJobs:   int(c.opts.Jobs),
		ContinueOnFailure: c.opts.ContinueOnFailure,
	})

	return executeScheduler(sched)
}

// goMaxProcs splits the available cores evenly between the parallel
// jobs. Every fuzzing process gets at least one core, oversubscription
// is left to the OS.
func goMaxProcs(cores, jobs int) int {
	gomaxprocs := cores / jobs
	if gomaxprocs < 1 {
		return 1
	}
	return gomaxprocs
}

func executeScheduler(sched jobScheduler) error {
	// Handle cleanup (terminating the fuzzing processes) when receiving
	// termination signals
	signalHandlerCtx, cancelSignalHandler := context.WithCancel(context.Background())
	routines, routinesCtx := errgroup.WithContext(signalHandlerCtx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	var signalErr error
	routines.Go(func() error {
		select {
		case <-routinesCtx.Done():
			return nil
		case s := <-sigs:
			log.Warnf("Received %s", s.String())
			signalErr = cmdutils.NewSignalError(s.(syscall.Signal))
			sched.Cleanup(routinesCtx)
			return signalErr
		}
	})

	// Run the fuzz tests
	routines.Go(func() error {
		defer cancelSignalHandler()
		return sched.Run(routinesCtx)
	})

	err := routines.Wait()
	// We use a separate variable to pass signal errors, because when
	// a signal was received, the first goroutine terminates the second
	// one, resulting in a race of which returns an error first. In that
	// case, we always want to print the signal error, not the context
	// cancellation error from the scheduler.
	if signalErr != nil {
		log.Error(signalErr, signalErr.Error())
		return cmdutils.WrapSilentError(signalErr)
	}

	return err
}
