package dependencies

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/util/regexutil"
)

// The patch part is optional to be lenient with outputs like
// "go version go1.21 linux/amd64"
var goVersionRegex = regexp.MustCompile(`(?m)go version go(?P<version>\d+\.\d+(\.\d+)?)`)

func goVersion(dep *Dependency) (*semver.Version, error) {
	path, err := exec.LookPath("go")
	if err != nil {
		return nil, errors.WithStack(err)
	}

	version, err := getVersionFromCommand(path, []string{"version"}, goVersionRegex, dep.Key)
	if err != nil {
		return nil, err
	}
	log.Debugf("Found Go version %s in PATH: %s", version, path)
	return version, nil
}

// takes a command + args and parses the output for a semver
func getVersionFromCommand(cmdPath string, args []string, re *regexp.Regexp, key Key) (*semver.Version, error) {
	output := bytes.Buffer{}
	cmd := exec.Command(cmdPath, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return extractVersion(output.String(), re, key)
}

// extractVersion pulls the "version" named group of re out of the
// command output.
func extractVersion(output string, re *regexp.Regexp, key Key) (*semver.Version, error) {
	match, found := regexutil.FindNamedGroupsMatch(re, output)
	if !found {
		return nil, fmt.Errorf("No matching version string for %s", key)
	}

	version, err := semver.NewVersion(match["version"])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return version, nil
}
