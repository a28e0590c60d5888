package initcmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/pkg/dialog"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

type initCmd struct {
	*cobra.Command
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up a project for use with fuzzall",
		Long: `This command sets up a project for use with fuzzall. It creates a
commented fuzzall.yaml in the current directory which documents all
available settings. The directory containing the fuzzall.yaml is
treated as the project root, 'fuzzall run' finds it from any
subdirectory.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cmd := initCmd{Command: c}
			return cmd.run()
		},
	}
	return cmd
}

func (cmd *initCmd) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.WithStack(err)
	}

	configpath, err := config.CreateProjectConfig(cwd)
	if errors.Is(err, os.ErrExist) {
		log.Warnf("Config already exists in %s", fileutil.PrettifyPath(configpath))

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if !interactive {
			return cmdutils.WrapSilentError(err)
		}

		var overwrite bool
		overwrite, err = dialog.Confirm("Overwrite the existing config?", false)
		if err != nil {
			return err
		}
		if !overwrite {
			log.Print("Keeping the existing config")
			return nil
		}

		configpath, err = config.WriteProjectConfig(cwd)
		if err != nil {
			log.Error(err, "Failed to create config")
			return cmdutils.WrapSilentError(err)
		}
	} else if err != nil {
		log.Error(err, "Failed to create config")
		return cmdutils.WrapSilentError(err)
	}

	log.Successf("Configuration saved in %s", fileutil.PrettifyPath(configpath))
	log.Print(`
Use 'fuzzall run' to run all fuzz functions of the project or
'fuzzall list' to see what was found.`)
	return nil
}
