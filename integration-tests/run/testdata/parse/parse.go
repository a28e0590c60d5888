package parse

import "strings"

// ParseComment returns the text of a line comment.
func ParseComment(line string) string {
	if strings.HasPrefix(line, "//!") {
		// Planted crash, found by the fuzzer through the seed corpus.
		panic("doc comments are not supported")
	}
	return strings.TrimPrefix(line, "//")
}
