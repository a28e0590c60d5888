package main

import (
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/fuzzall/fuzzall/internal/cmd/root"
	"github.com/fuzzall/fuzzall/pkg/log"
)

func main() {
	// Align the runtime with container CPU quotas. The quota is what
	// the fuzzing processes will be throttled to as well.
	_, _ = maxprocs.Set(maxprocs.Logger(log.Debugf))

	root.Execute()
}
