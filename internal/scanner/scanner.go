package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/util/fileutil"
	"github.com/fuzzall/fuzzall/util/regexutil"
)

var fuzzFuncRegex = regexp.MustCompile(`func\s+(?P<name>Fuzz\w*)\s*\(`)

// Target is a single fuzz test discovered in the source tree.
type Target struct {
	// ModuleDir is the directory containing the fuzz test, relative to
	// the scanned root. "." for tests at the root itself.
	ModuleDir string `json:"module_dir"`
	// Name is the name of the fuzz test function, e.g. "FuzzParseQuery".
	Name string `json:"name"`
	// SourceFile is the test file the function was found in, relative to
	// the scanned root.
	SourceFile string `json:"source_file"`
}

func (t *Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.ModuleDir)
}

// Scanner discovers fuzz test targets below a root directory. The run
// command only depends on this interface, so tests can substitute
// their own discovery.
type Scanner interface {
	ScanTargets(rootDir string) ([]*Target, error)
}

// ScanError indicates that target discovery itself failed, for example
// because the root directory doesn't exist. Finding no targets is not
// an error.
type ScanError struct {
	err error
}

func (e *ScanError) Error() string {
	return e.err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.err
}

func WrapScanError(err error) error {
	return &ScanError{err}
}

type TargetScanner struct{}

func NewTargetScanner() *TargetScanner {
	return &TargetScanner{}
}

// ScanTargets lists all fuzz tests found in *_test.go files below
// rootDir. Hidden directories and testdata directories are skipped.
// A fuzz test redeclared in multiple files of the same directory is
// reported once. The order of the result depends on the filesystem
// walk, callers which need a stable order have to sort it themselves.
func (s *TargetScanner) ScanTargets(rootDir string) ([]*Target, error) {
	exists, err := fileutil.Exists(rootDir)
	if err != nil {
		return nil, WrapScanError(err)
	}
	if !exists {
		return nil, WrapScanError(errors.Errorf("directory not found: %s", rootDir))
	}
	if !fileutil.IsDir(rootDir) {
		return nil, WrapScanError(errors.Errorf("not a directory: %s", rootDir))
	}

	// use zglob to support globbing in windows
	matches, err := zglob.Glob(filepath.Join(rootDir, "**", "*_test.go"))
	if err != nil {
		return nil, WrapScanError(errors.WithStack(err))
	}

	var targets []*Target
	seen := make(map[string]bool)
	for _, match := range matches {
		relPath, err := filepath.Rel(rootDir, match)
		if err != nil {
			return nil, WrapScanError(errors.WithStack(err))
		}
		if isIgnoredPath(relPath) {
			continue
		}

		names, err := fuzzFuncNames(match)
		if err != nil {
			return nil, err
		}

		moduleDir := filepath.Dir(relPath)
		for _, name := range names {
			key := filepath.Join(moduleDir, name)
			if seen[key] {
				continue
			}
			seen[key] = true
			targets = append(targets, &Target{
				ModuleDir:  moduleDir,
				Name:       name,
				SourceFile: relPath,
			})
		}
	}

	return targets, nil
}

// isIgnoredPath reports whether the path contains a hidden or a
// testdata directory. Go tooling ignores those too.
func isIgnoredPath(relPath string) bool {
	for _, segment := range strings.Split(relPath, string(os.PathSeparator)) {
		if segment == "testdata" || strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

func fuzzFuncNames(path string) ([]string, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapScanError(errors.WithStack(err))
	}

	matches, found := regexutil.FindAllNamedGroupsMatches(fuzzFuncRegex, string(bytes))
	if !found {
		return nil, nil
	}

	var names []string
	for _, match := range matches {
		names = append(names, match["name"])
	}
	return names, nil
}
