package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fuzzall/fuzzall/pkg/report"
)

func TestCompletionMessage(t *testing.T) {
	msg := completionMessage(&report.Summary{Total: 7, Succeeded: 7})
	assert.Equal(t, "All 7 fuzz tests passed", msg)

	msg = completionMessage(&report.Summary{Total: 7, Succeeded: 5, Failed: 2})
	assert.Equal(t, "2 of 7 fuzz tests failed", msg)
}
