package stubs

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/util/fileutil"
)

//go:embed fuzz_test.go.tmpl
var goStub string

// Create writes a templated Go fuzz test with the given fuzz function
// name to path. The package clause is derived from the directory the
// file is created in and may need to be adjusted when that directory
// holds a differently named package.
func Create(path, fuzzTestName string) error {
	exists, err := fileutil.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return errors.WithStack(os.ErrExist)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return errors.WithStack(err)
	}

	content := strings.Replace(goStub, "__PACKAGE__", packageName(filepath.Base(dir)), 1)
	content = strings.Replace(content, "__FUZZ_TEST_NAME__", fuzzTestName, 1)

	return errors.WithStack(os.WriteFile(path, []byte(content), 0o644))
}

// packageName turns a directory name into a valid Go package name.
func packageName(dirName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(dirName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "fuzz" + name
	}
	return name
}

// FuzzTestFilename returns a proposal for the filename of a new fuzz
// test, derived from the fuzz function name. Only files with a _test.go
// suffix are picked up by the Go tooling.
func FuzzTestFilename(fuzzTestName string) (string, error) {
	basename := strings.ToLower(strings.TrimPrefix(fuzzTestName, "Fuzz"))
	if basename == "" {
		basename = "fuzz"
	}

	for counter := 1; ; counter++ {
		var filename string
		if counter == 1 {
			filename = filepath.Join(".", fmt.Sprintf("%s_test.go", basename))
		} else {
			filename = filepath.Join(".", fmt.Sprintf("%s_%d_test.go", basename, counter))
		}
		exists, err := fileutil.Exists(filename)
		if err != nil {
			return "", err
		}

		if !exists {
			return filename, nil
		}
	}
}
