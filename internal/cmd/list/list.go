package list

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/util/stringutil"
)

type options struct {
	PrintJSON bool `mapstructure:"print-json"`

	ProjectDir string
}

type listCmd struct {
	*cobra.Command
	opts *options
}

func New() *cobra.Command {
	return newWithOptions(&options{})
}

func newWithOptions(opts *options) *cobra.Command {
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the fuzz functions found in the project",
		Long: `This command lists all fuzz functions found in the test files of the
project, together with the directory they live in. These are the names
which can be passed to 'fuzzall run' to fuzz only a subset of them.`,
		Args: cobra.NoArgs,
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
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := listCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddPrintJSONFlag,
	)

	return cmd
}

func (cmd *listCmd) run() error {
	targets, err := scanner.NewTargetScanner().ScanTargets(cmd.opts.ProjectDir)
	if err != nil {
		log.Error(err, err.Error())
		return cmdutils.WrapSilentError(err)
	}

	// Discovery order depends on the filesystem, sort for stable output
	slices.SortFunc(targets, func(a, b *scanner.Target) bool {
		if a.ModuleDir != b.ModuleDir {
			return a.ModuleDir < b.ModuleDir
		}
		return a.Name < b.Name
	})

	if cmd.opts.PrintJSON {
		s, err := stringutil.ToJSONString(targets)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}

	if len(targets) == 0 {
		log.Print("No fuzz functions found in this project")
		return nil
	}

	data := [][]string{
		{"Name", "Directory", "Source file"},
	}
	for _, target := range targets {
		data = append(data, []string{target.Name, target.ModuleDir, target.SourceFile})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
