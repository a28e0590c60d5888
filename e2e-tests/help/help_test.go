package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"

	e2e "github.com/fuzzall/fuzzall/e2e-tests"
)

var helpTests = &[]e2e.TestCase{
	{
		Description: "help command without other arguments prints --help text",
		Command:     "help",
		Assert: func(t *testing.T, output e2e.CommandOutput) {
			assert.EqualValues(t, 0, output.ExitCode)
			assert.Equal(t, output.Stderr, "")
			assert.Contains(t, output.Stdout, "Available Commands")
		},
	},
	{
		Description: "using help args prints --help text",
		Command:     "",
		Args:        []string{"--help", "-h"},
		Assert: func(t *testing.T, output e2e.CommandOutput) {
			assert.EqualValues(t, 0, output.ExitCode)
			assert.Equal(t, output.Stderr, "")
			assert.Contains(t, output.Stdout, "Available Commands")
		},
	},
	{
		Description: "unknown flags print an error and a non-zero exit code",
		Command:     "",
		Args:        []string{"--h"},
		Assert: func(t *testing.T, output e2e.CommandOutput) {
			assert.EqualValues(t, 1, output.ExitCode)
		},
	},
	{
		Description: "using help args prints --help text for subcommands",
		Command:     "run",
		Args:        []string{"--help"},
		Assert: func(t *testing.T, output e2e.CommandOutput) {
			assert.EqualValues(t, 0, output.ExitCode)
			assert.Equal(t, output.Stderr, "")
			assert.Contains(t, output.Stdout, "This command runs the fuzz functions")
		},
	},
}

func TestHelp(t *testing.T) {
	e2e.RunTests(t, *helpTests)
}
