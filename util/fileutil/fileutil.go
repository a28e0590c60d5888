package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/pkg/log"
)

// IsDir returns whether this path is a directory.
func IsDir(path string) bool {
	f, err := os.Stat(path)
	if err != nil {
		return false
	}
	return f.Mode()&os.ModeDir != 0
}

// Touch creates a file at the given path
func Touch(path string) error {
	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return errors.WithStack(err)
	}
	err = file.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errors.WithStack(err)
	}
	return !errors.Is(err, os.ErrNotExist), nil
}

// Cleanup removes the specified file or directory and prints any errors
// to stderr. It's supposed to be used in defer statements to clean up
// temporary directories.
func Cleanup(path string) {
	if os.Getenv("SKIP_CLEANUP") != "" {
		return
	}

	err := os.RemoveAll(path)
	if err != nil {
		log.Warnf("%+v", errors.WithStack(err))
	}
}

// PrettifyPath prints a possibly shortened path for display purposes.
// If path is located under the current working directory, the relative path to
// it is returned, otherwise or in case of an error the path is returned
// unchanged.
func PrettifyPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, filepath.FromSlash("../")) {
		return path
	}
	return rel
}

// ForceLongPathTempDir ensures that os.TempDir() creates temporary
// directories with long paths on Windows, resolving all "8.3" style
// short names. The per-run job log directories live below os.TempDir()
// and their paths end up in user-facing output, where short names are
// confusing and don't round-trip through all tools.
func ForceLongPathTempDir() {
	if runtime.GOOS != "windows" {
		return
	}
	tempDirLongPath, err := filepath.EvalSymlinks(os.TempDir())
	if err != nil {
		log.Error(err, "failed to get long path for temp dir")
		return
	}
	// os.TempDir() calls GetTempPath on Windows, which first inspects
	// the TMP environment variable.
	// https://learn.microsoft.com/en-us/windows/win32/api/fileapi/nf-fileapi-gettemppatha
	err = os.Setenv("TMP", tempDirLongPath)
	if err != nil {
		log.Error(err, "failed to set TMP to long path for temp dir")
	}
}

// SearchFileBackwards searches for a file by going backwards/upwards
// from a given path
// if a path `/foo/bar` is given the order of search is
//  1. /foo/bar
//  2. /foo/
//  3. /
func SearchFileBackwards(start, filename string) (string, error) {
	currentDir := start
	for {
		filePath := filepath.Join(currentDir, filename)
		exists, err := Exists(filePath)
		if err != nil {
			return "", errors.WithStack(err)
		}
		if exists {
			return filePath, nil
		}

		// if the root directory is reached stop the search
		if currentDir == filepath.Dir(currentDir) {
			break
		}

		// step one dir up
		currentDir = filepath.Dir(currentDir)
	}

	return "", os.ErrNotExist
}
