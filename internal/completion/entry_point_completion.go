package completion

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/pkg/log"
)

// ValidEntryPoints can be used as a cobra ValidArgsFunction that
// completes the names of the fuzz functions found in the project.
func ValidEntryPoints(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	projectDir, err := config.FindProjectDir()
	if err != nil {
		log.Error(err, err.Error())
		return nil, cobra.ShellCompDirectiveError
	}

	targets, err := scanner.NewTargetScanner().ScanTargets(projectDir)
	if err != nil {
		// Command completion is best-effort: Do not fail on errors
		log.Error(err, err.Error())
		return nil, cobra.ShellCompDirectiveError
	}

	// The same fuzz function name can show up in multiple directories,
	// completion only deals in names.
	seen := map[string]bool{}
	var res []string
	for _, target := range targets {
		if seen[target.Name] || !strings.HasPrefix(target.Name, toComplete) {
			continue
		}
		seen[target.Name] = true
		res = append(res, target.Name)
	}
	slices.Sort(res)

	return res, cobra.ShellCompDirectiveNoFileComp
}
