package dependencies

import (
	"fmt"
	"os/exec"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/pkg/log"
)

var ErrDeps = errors.New(`Unable to run fuzz tests due to missing/invalid dependencies.
For installation instructions see:

	https://go.dev/doc/install

`)

type Key string

const (
	GO Key = "go"

	MessageVersion = "fuzzall requires %s %s or higher, have %s"
	MessageMissing = "fuzzall requires %s, but it is not installed"
)

// Dependency represents a single dependency
type Dependency struct {
	Key        Key
	MinVersion semver.Version
	// these fields are used to implement custom logic to
	// retrieve version or installation information for the
	// specific dependency
	GetVersion func(*Dependency) (*semver.Version, error)
	Installed  func(*Dependency) bool
}

type Dependencies map[Key]*Dependency

// List of all known dependencies
var deps = Dependencies{
	GO: {
		Key: GO,
		// native fuzzing was added in go 1.18
		MinVersion: *semver.MustParse("1.18.0"),
		GetVersion: goVersion,
		Installed: func(dep *Dependency) bool {
			_, err := exec.LookPath("go")
			return err == nil
		},
	},
}

// Define returns fresh copies of the requested dependency definitions,
// which tests can override without touching the global table.
func Define(keys []Key) (Dependencies, error) {
	res := make(Dependencies)
	for _, key := range keys {
		dep, found := deps[key]
		if !found {
			return nil, errors.Errorf("Undefined dependency %s", key)
		}
		depCopy := *dep
		res[key] = &depCopy
	}
	return res, nil
}

// Compares MinVersion against GetVersion
func (dep *Dependency) checkVersion() bool {
	currentVersion, err := dep.GetVersion(dep)
	if err != nil {
		log.Warnf("Unable to get current version for %s, message: %v", dep.Key, err)
		// we want to be lenient if we were not able to extract the version
		return true
	}

	if currentVersion.Compare(&dep.MinVersion) == -1 {
		log.Warnf(MessageVersion, dep.Key, dep.MinVersion.String(), currentVersion.String())
		return false
	}
	return true
}

// Check iterates over a list of dependencies and checks if they are fulfilled
func Check(keys []Key) error {
	return check(keys, deps)
}

func check(keys []Key, deps Dependencies) error {
	allFine := true
	for _, key := range keys {
		dep, found := deps[key]
		if !found {
			panic(fmt.Sprintf("Undefined dependency %s", key))
		}

		if !dep.Installed(dep) {
			log.Warnf(MessageMissing, dep.Key)
			allFine = false
			continue
		}

		log.Debugf("Checking dependency: %s version >= %s", dep.Key, dep.MinVersion.String())

		if !dep.checkVersion() {
			allFine = false
		}
	}

	if !allFine {
		return ErrDeps
	}
	return nil
}
