package report_handler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuzzall/fuzzall/util/fileutil"
)

func TestErrorSink_NoPath(t *testing.T) {
	captureOutput(t)
	sink := NewErrorSink("")
	// must not panic or create any file
	sink.Write("FAILED: FuzzA in a_test.go\n---")
}

func TestErrorSink_CreatesAndAppends(t *testing.T) {
	captureOutput(t)
	tempDir, err := os.MkdirTemp("", "error-sink-")
	require.NoError(t, err)
	defer fileutil.Cleanup(tempDir)
	errorFile := filepath.Join(tempDir, "errors.log")

	sink := NewErrorSink(errorFile)
	sink.Write("first failure")
	sink.Write("second failure")

	content, err := os.ReadFile(errorFile)
	require.NoError(t, err)
	assert.Equal(t, "first failure\nsecond failure\n", string(content))
}

// An existing error file is appended to, not truncated. Repeated runs
// pointing at the same file must keep earlier failures.
func TestErrorSink_KeepsExistingContent(t *testing.T) {
	captureOutput(t)
	tempDir, err := os.MkdirTemp("", "error-sink-")
	require.NoError(t, err)
	defer fileutil.Cleanup(tempDir)
	errorFile := filepath.Join(tempDir, "errors.log")
	err = os.WriteFile(errorFile, []byte("earlier run\n"), 0o644)
	require.NoError(t, err)

	sink := NewErrorSink(errorFile)
	sink.Write("new failure")

	content, err := os.ReadFile(errorFile)
	require.NoError(t, err)
	assert.Equal(t, "earlier run\nnew failure\n", string(content))
}

// Concurrent failures must land contiguous in the file, each block in
// full and never interleaved with another one.
func TestErrorSink_ConcurrentWritesAreContiguous(t *testing.T) {
	captureOutput(t)
	tempDir, err := os.MkdirTemp("", "error-sink-")
	require.NoError(t, err)
	defer fileutil.Cleanup(tempDir)
	errorFile := filepath.Join(tempDir, "errors.log")

	sink := NewErrorSink(errorFile)

	var blocks []string
	for i := 0; i < 8; i++ {
		blocks = append(blocks, fmt.Sprintf(
			"FAILED: Fuzz%d in fuzz_%d_test.go\nDetails: line one\nline two\nline three\n---", i, i))
	}

	var wg sync.WaitGroup
	for _, block := range blocks {
		block := block
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Write(block)
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(errorFile)
	require.NoError(t, err)
	for _, block := range blocks {
		assert.Contains(t, string(content), block+"\n")
	}
	// nothing but the blocks themselves
	assert.Len(t, strings.Split(strings.TrimRight(string(content), "\n"), "---\n"), len(blocks))
}
