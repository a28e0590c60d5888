package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettifyPath(t *testing.T) {
	var filesystemRoot string
	if runtime.GOOS == "windows" {
		filesystemRoot = "C:\\"
	} else {
		filesystemRoot = "/"
	}
	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, filesystemRoot+filepath.Join("not", "cwd"), PrettifyPath(filesystemRoot+filepath.Join("not", "cwd")))
	assert.Equal(t, filepath.Join("some", "dir"), PrettifyPath(filepath.Join(cwd, "some", "dir")))
	assert.Equal(t, cwd, PrettifyPath(cwd))
	assert.Equal(t, filepath.Dir(cwd), PrettifyPath(filepath.Dir(cwd)))
	assert.Equal(t, filepath.Join("..some", "dir"), PrettifyPath(filepath.Join(cwd, "..some", "dir")))
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	exists, err := Exists(filepath.Join(tmpDir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)

	testFile := filepath.Join(tmpDir, "file")
	err = Touch(testFile)
	require.NoError(t, err)

	exists, err = Exists(testFile)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIsDir(t *testing.T) {
	tmpDir := t.TempDir()
	assert.True(t, IsDir(tmpDir))

	testFile := filepath.Join(tmpDir, "file")
	err := Touch(testFile)
	require.NoError(t, err)
	assert.False(t, IsDir(testFile))
	assert.False(t, IsDir(filepath.Join(tmpDir, "missing")))
}

func TestSearchBackwards(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "backwards")
	require.NoError(t, err)
	defer Cleanup(tmpDir)

	startDir := filepath.Join(tmpDir, "foo", "bar", "foobar")
	err = os.MkdirAll(startDir, 0o755)
	require.NoError(t, err)

	testFile := filepath.Join(tmpDir, "foo", "test.txt")
	err = Touch(testFile)
	require.NoError(t, err)

	path, err := SearchFileBackwards(startDir, "test.txt")
	require.NoError(t, err)
	assert.Equal(t, testFile, path)
}

func TestSearchBackwards_NotFound(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "backwards")
	require.NoError(t, err)
	defer Cleanup(tmpDir)

	startDir := filepath.Join(tmpDir, "foo", "bar", "foobar")
	err = os.MkdirAll(startDir, 0o755)
	require.NoError(t, err)

	path, err := SearchFileBackwards(startDir, "test.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, path)
}
