package create

import (
	"fmt"
	"os"
	"regexp"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/pkg/dialog"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/pkg/stubs"
)

// The Go tooling only treats functions named Fuzz or Fuzz followed by a
// non-lowercase letter as fuzz tests.
var fuzzTestNameRegex = regexp.MustCompile(`^Fuzz$|^Fuzz[A-Z0-9_]\w*$`)

type createOpts struct {
	outputPath string
	name       string
}

func (opts *createOpts) validate() error {
	if opts.name == "" {
		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if !interactive {
			err := errors.New("Missing argument <fuzz function name>")
			return cmdutils.WrapIncorrectUsageError(err)
		}
		return nil
	}

	return validateFuzzTestName(opts.name)
}

func validateFuzzTestName(name string) error {
	if !fuzzTestNameRegex.MatchString(name) {
		msg := fmt.Sprintf("invalid fuzz function name %q: the name must start with Fuzz followed by a capitalized word, like FuzzParseQuery", name)
		return cmdutils.WrapIncorrectUsageError(errors.New(msg))
	}
	return nil
}

type createCmd struct {
	*cobra.Command

	opts *createOpts
}

func New() *cobra.Command {
	return newWithOptions(&createOpts{})
}

func newWithOptions(opts *createOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [<fuzz function name>]",
		Short: "Create a new fuzz test",
		Long: `This command creates a templated Go fuzz test file in the current
directory. Edit the created file to call the function you want to fuzz,
then execute the fuzz test via 'fuzzall run'.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.name = args[0]
			}
			return opts.validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := createCmd{
				Command: c,
				opts:    opts,
			}
			return cmd.run()
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "File path of new fuzz test")

	return cmd
}

func (c *createCmd) run() error {
	var err error
	if c.opts.name == "" {
		c.opts.name, err = dialog.Input("Name of the new fuzz function, for example FuzzParseQuery")
		if err != nil {
			return err
		}
		err = validateFuzzTestName(c.opts.name)
		if err != nil {
			return err
		}
	}
	log.Debugf("Fuzz function name: %s", c.opts.name)

	if c.opts.outputPath == "" {
		c.opts.outputPath, err = stubs.FuzzTestFilename(c.opts.name)
		if err != nil {
			return err
		}
	}
	log.Debugf("Output path: %s", c.opts.outputPath)

	// create stub
	err = stubs.Create(c.opts.outputPath, c.opts.name)
	if err != nil {
		log.Errorf(err, "Failed to create fuzz test stub %s: %s", c.opts.outputPath, err.Error())
		return cmdutils.ErrSilent
	}

	// show success message
	log.Successf("Created fuzz test stub %s", c.opts.outputPath)
	log.Print(`
Note: Fuzz tests can be put anywhere in your repository, but it makes sense
to keep them close to the tested code - just like regular unit tests.`)

	return nil
}
