package cpuutil

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// DefaultNumCPU is the parallelism fallback when the processor count
// can't be determined from the host.
const DefaultNumCPU = 4

const cpuInfoPath = "/proc/cpuinfo"

// NumCPU returns the number of processors available to this process.
// It asks the runtime first, then falls back to parsing the processor
// topology from /proc/cpuinfo and finally to DefaultNumCPU. The result
// is always at least 1.
func NumCPU() int {
	if n := runtime.NumCPU(); n >= 1 {
		return n
	}

	n, err := countProcessors(cpuInfoPath)
	if err == nil && n >= 1 {
		return n
	}

	return DefaultNumCPU
}

// countProcessors counts the "processor : N" entries of a cpuinfo
// style topology file.
func countProcessors(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer f.Close()

	numProcessors := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, _, found := strings.Cut(scanner.Text(), ":")
		if found && strings.TrimSpace(key) == "processor" {
			numProcessors++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.WithStack(err)
	}

	return numProcessors, nil
}
