package testutil

import (
	"os"
	"path/filepath"

	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/util/fileutil"
)

const exampleGoMod = `module exampleproject

go 1.21
`

const exampleParserTest = `package parser

import "testing"

func FuzzParseQuery(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {})
}
`

const exampleAPITest = `package api

import "testing"

func FuzzHandleRequest(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {})
}
`

const exampleRootTest = `package exampleproject

import "testing"

func FuzzRoundTrip(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {})
}
`

// ChdirToTempDir creates a temporary directory, changes the working
// directory to it and returns it together with a cleanup function
// which restores the previous working directory.
func ChdirToTempDir(prefix string) (string, func()) {
	fileutil.ForceLongPathTempDir()

	oldWd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	testDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		panic(err)
	}
	// Resolve symlinks so that paths derived from the working
	// directory compare equal to testDir (macOS temp dirs).
	testDir, err = filepath.EvalSymlinks(testDir)
	if err != nil {
		panic(err)
	}

	err = os.Chdir(testDir)
	if err != nil {
		panic(err)
	}

	return testDir, func() {
		err := os.Chdir(oldWd)
		if err != nil {
			panic(err)
		}
		fileutil.Cleanup(testDir)
	}
}

// BootstrapExampleProjectForTest creates an example project containing
// a fuzzall.yaml, a go.mod and test files with three fuzz functions
// (FuzzParseQuery, FuzzHandleRequest and FuzzRoundTrip) in a temporary
// directory and changes the working directory to it.
func BootstrapExampleProjectForTest(prefix string) (string, func()) {
	projectDir, cleanup := ChdirToTempDir(prefix)

	_, err := config.CreateProjectConfig(projectDir)
	if err != nil {
		panic(err)
	}

	files := map[string]string{
		"go.mod":                 exampleGoMod,
		"roundtrip_test.go":      exampleRootTest,
		"parser/parser_test.go":  exampleParserTest,
		"internal/api/a_test.go": exampleAPITest,
	}
	for path, content := range files {
		path = filepath.Join(projectDir, path)
		err = os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			panic(err)
		}
		err = os.WriteFile(path, []byte(content), 0o644)
		if err != nil {
			panic(err)
		}
	}

	return projectDir, cleanup
}
