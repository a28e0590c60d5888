package cmdutils

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fuzzall/fuzzall/util/cpuutil"
)

func ViperMustBindPFlag(key string, flag *pflag.Flag) {
	err := viper.BindPFlag(key, flag)
	if err != nil {
		panic(err)
	}
}

// AddFlags executes the specified Add*Flag functions and returns a
// function which binds all those flags to viper
func AddFlags(cmd *cobra.Command, funcs ...func(cmd *cobra.Command) func()) (bindFlags func()) { // nolint:nonamedreturns
	var bindFlagFuncs []func()
	for _, f := range funcs {
		bindFlagFunc := f(cmd)
		bindFlagFuncs = append(bindFlagFuncs, bindFlagFunc)
	}
	return func() {
		for _, f := range bindFlagFuncs {
			f()
		}
	}
}

func AddTimeFlag(cmd *cobra.Command) func() {
	cmd.Flags().UintP("time", "t", 10,
		"Number of `seconds` each fuzz test keeps fuzzing before it\n"+
			"counts as passed.")
	return func() {
		ViperMustBindPFlag("time", cmd.Flags().Lookup("time"))
	}
}

func AddJobsFlag(cmd *cobra.Command) func() {
	cmd.Flags().UintP("jobs", "j", uint(cpuutil.NumCPU()),
		"Maximum number of fuzz tests running in parallel.\n"+
			"Defaults to the number of CPU cores.")
	return func() {
		ViperMustBindPFlag("jobs", cmd.Flags().Lookup("jobs"))
	}
}

func AddErrorFileFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("error-file", "e", "",
		"A `file` which collects the output of failed fuzz tests.\n"+
			"The file is appended to, so it accumulates failures across runs.\n"+
			"By default, failures are only printed to stderr.")
	return func() {
		ViperMustBindPFlag("error-file", cmd.Flags().Lookup("error-file"))
	}
}

func AddContinueFlag(cmd *cobra.Command) func() {
	cmd.Flags().BoolP("continue", "c", false,
		"Keep running the remaining fuzz tests after one of them failed.\n"+
			"By default, no new fuzz tests are started once a failure is\n"+
			"observed, while already running ones are left to finish.")
	return func() {
		ViperMustBindPFlag("continue-on-failure", cmd.Flags().Lookup("continue"))
	}
}

func AddConfigDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("config-dir", "./shared",
		"A `directory` with shared settings for the code under test.\n"+
			"It is passed to the fuzz test processes via the FUZZ_CONFIG_DIR\n"+
			"environment variable and is never interpreted by fuzzall itself.")
	return func() {
		ViperMustBindPFlag("config-dir", cmd.Flags().Lookup("config-dir"))
	}
}

func AddPrintJSONFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("json", false, "Print output as JSON")
	return func() {
		ViperMustBindPFlag("print-json", cmd.Flags().Lookup("json"))
	}
}
