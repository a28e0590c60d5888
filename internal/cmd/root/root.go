package root

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	createCmd "github.com/fuzzall/fuzzall/internal/cmd/create"
	initCmd "github.com/fuzzall/fuzzall/internal/cmd/init"
	listCmd "github.com/fuzzall/fuzzall/internal/cmd/list"
	runCmd "github.com/fuzzall/fuzzall/internal/cmd/run"
	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

// Version is overridden at build time for releases.
var Version = "dev"

func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fuzzall",
		Short: "Run all Go fuzz tests of a project in parallel",
		Long: `fuzzall discovers the fuzz functions in the test files of a project
and runs each of them for a fixed amount of time, several in parallel.
It reports which ones found a crash.`,
		Version: Version,
		// Commands print their errors themselves and return ErrSilent,
		// which gives them control over the formatting. Cobra only
		// handles its own flag and argument parsing errors.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				log.DisableColor()
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show more verbose output, can be helpful for debugging problems")
	cmdutils.ViperMustBindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Settings can also come from the environment, FUZZ_ERROR_FILE for
	// --error-file and so on. Flags take precedence over the
	// environment, the environment over fuzzall.yaml.
	viper.SetEnvPrefix("FUZZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(createCmd.New())
	rootCmd.AddCommand(initCmd.New())
	rootCmd.AddCommand(listCmd.New())
	rootCmd.AddCommand(runCmd.New())

	return rootCmd
}

// Execute runs the command tree and exits the process with the
// appropriate exit code.
func Execute() {
	// Nested temp dirs hit the 260 character path limit on Windows
	// quickly unless long paths are forced.
	fileutil.ForceLongPathTempDir()

	cmd, err := New().ExecuteC()
	if err == nil {
		return
	}

	var signalErr *cmdutils.SignalError
	if errors.As(err, &signalErr) {
		os.Exit(128 + int(signalErr.Signal))
	}

	var usageErr *cmdutils.IncorrectUsageError
	if errors.As(err, &usageErr) || isCobraUsageError(err) {
		log.Error(err)
		_, _ = fmt.Fprintln(log.Output, cmd.UsageString())
	} else if !errors.Is(err, cmdutils.ErrSilent) {
		log.Error(err)
	}

	os.Exit(1)
}

// isCobraUsageError reports whether the error was produced by cobra's
// own flag and argument parsing, which happens before commands get a
// chance to wrap their errors.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.HasPrefix(msg, "invalid argument")
}
