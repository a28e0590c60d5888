package dependencies

import (
	"testing"

	"github.com/Masterminds/semver"
)

// MockAllDeps marks all the dependencies of this package as installed
// in the right version
func MockAllDeps(t *testing.T) {
	t.Helper()

	versionFunc := func(dep *Dependency) (*semver.Version, error) {
		return &dep.MinVersion, nil
	}
	installedFunc := func(dep *Dependency) bool {
		return true
	}

	// these functions would look for/use the actual go tool,
	// so they need to be replaced with mocks
	for _, dep := range deps {
		dep.GetVersion = versionFunc
		dep.Installed = installedFunc
	}
}

// OverwriteGetVersionWith0 marks the specified dependency as installed
// in version 0.0.0
func OverwriteGetVersionWith0(dep *Dependency) *semver.Version {
	version := semver.MustParse("0.0.0")
	dep.GetVersion = func(d *Dependency) (*semver.Version, error) {
		return version, nil
	}
	return version
}

// OverwriteUninstalled marks the specified dependency as uninstalled
func OverwriteUninstalled(dep *Dependency) {
	dep.Installed = func(d *Dependency) bool {
		return false
	}
}

// GetDep returns the definition of the specified dependency.
func GetDep(key Key) *Dependency {
	return deps[key]
}
