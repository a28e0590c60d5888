package stringutil

import (
	"encoding/json"

	"github.com/alessio/shellescape"
	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/errors"
)

// QuotedStrings returns a copy of the given strings with each element
// quoted as necessary so that it can be pasted into a shell.
func QuotedStrings(strs []string) []string {
	quoted := make([]string, 0, len(strs))
	for _, s := range strs {
		quoted = append(quoted, shellescape.Quote(s))
	}
	return quoted
}

// MaxLen returns the length of the longest string in the given slice.
func MaxLen(strs []string) int {
	maxLen := 0
	for _, s := range strs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	return maxLen
}

// ToJSONString marshals the given value into a plain indented JSON
// string, suitable for machine consumption.
func ToJSONString(v interface{}) (string, error) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(bytes), nil
}

// PrettyString marshals the given value into a colorized JSON string
// for debug output. Falls back to plain JSON when colorizing fails.
func PrettyString(v interface{}) string {
	s, err := prettyjson.Marshal(v)
	if err != nil {
		bytes, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(bytes)
	}
	return string(s)
}
