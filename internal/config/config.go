package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fuzzall/fuzzall/util/fileutil"
)

// ProjectConfigFile is the name of the config file that marks the
// project directory.
const ProjectConfigFile = "fuzzall.yaml"

const projectConfigTemplate = `## Configuration for fuzzall
## Every setting here can be overridden with FUZZ_* environment
## variables or command-line flags.

## Seconds each fuzz test keeps fuzzing before it counts as passed
## Default: 10
#time: 10

## Maximum number of fuzz tests running in parallel
## Default: number of CPU cores
#jobs: 4

## File collecting the output of failed fuzz tests, appended across runs
## Default: unset, failures are only printed to stderr
#error-file: fuzz-errors.log

## Keep running the remaining fuzz tests after one of them failed
## Default: false
#continue-on-failure: false

## Directory with shared settings, passed to the fuzz test processes
## via FUZZ_CONFIG_DIR
## Default: ./shared
#config-dir: ./shared

## Print the final summary as JSON
## Default: false
#print-json: false
`

// projectConfigKeys lists every option fuzzall.yaml may contain.
// Unknown keys are rejected so that typos don't silently fall back to
// the defaults.
var projectConfigKeys = map[string]struct{}{
	"time":                {},
	"jobs":                {},
	"error-file":          {},
	"continue-on-failure": {},
	"config-dir":          {},
	"print-json":          {},
	"verbose":             {},
}

// CreateProjectConfig creates a new project config in the given
// directory. It refuses to touch an existing config and returns its
// path together with os.ErrExist instead.
func CreateProjectConfig(projectDir string) (string, error) {
	configpath := filepath.Join(projectDir, ProjectConfigFile)

	exists, err := fileutil.Exists(configpath)
	if err != nil {
		return "", err
	}
	if exists {
		return configpath, errors.WithStack(os.ErrExist)
	}

	return WriteProjectConfig(projectDir)
}

// WriteProjectConfig writes the commented default config, replacing an
// existing one. Callers are expected to have asked the user before
// overwriting.
func WriteProjectConfig(projectDir string) (string, error) {
	configpath := filepath.Join(projectDir, ProjectConfigFile)

	err := os.WriteFile(configpath, []byte(projectConfigTemplate), 0o644)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return configpath, nil
}

// FindAndParseProjectConfig locates the project directory starting
// from the current working directory and fills opts from the config
// file found there, see ParseProjectConfig.
func FindAndParseProjectConfig(opts interface{}) error {
	projectDir, err := FindProjectDir()
	if err != nil {
		return err
	}

	return ParseProjectConfig(projectDir, opts)
}

// ParseProjectConfig fills the mapstructure-tagged fields of opts from
// the fuzzall.yaml in projectDir. A missing config file is fine, all
// settings have defaults and can come from flags or the environment.
// Values from flags and FUZZ_* environment variables take precedence
// because the corresponding viper keys are bound to them.
func ParseProjectConfig(projectDir string, opts interface{}) error {
	configpath := filepath.Join(projectDir, ProjectConfigFile)

	exists, err := fileutil.Exists(configpath)
	if err != nil {
		return err
	}
	if exists {
		err = validateConfigKeys(configpath)
		if err != nil {
			return err
		}

		viper.SetConfigFile(configpath)
		err = viper.ReadInConfig()
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err = viper.Unmarshal(opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// The project directory is derived, not a setting, so
	// viper.Unmarshal doesn't cover it. Option structs which care
	// carry a ProjectDir field.
	v := reflect.ValueOf(opts).Elem().FieldByName("ProjectDir")
	if v.IsValid() && v.Kind() == reflect.String {
		v.SetString(projectDir)
	}

	return nil
}

// FindProjectDir returns the directory containing the fuzzall.yaml,
// searching upwards from the current working directory. Projects
// without a config file are fine, in that case the working directory
// itself is the project directory.
func FindProjectDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WithStack(err)
	}

	configpath, err := fileutil.SearchFileBackwards(cwd, ProjectConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		return cwd, nil
	}
	if err != nil {
		return "", err
	}

	return filepath.Dir(configpath), nil
}

func validateConfigKeys(configpath string) error {
	content, err := os.ReadFile(configpath)
	if err != nil {
		return errors.WithStack(err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	config := map[string]interface{}{}
	err = decoder.Decode(&config)
	if errors.Is(err, io.EOF) {
		// A config file without any settings, for example the
		// freshly created template, is valid.
		return nil
	}
	if err != nil {
		return errors.WithMessagef(err, "Failed to parse %s", ProjectConfigFile)
	}

	var unknown []string
	for key := range config {
		if _, ok := projectConfigKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Errorf("Unknown options in %s: %s", configpath, strings.Join(unknown, ", "))
	}

	return nil
}
