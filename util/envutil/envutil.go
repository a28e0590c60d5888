package envutil

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/util/stringutil"
)

// Like os.LookupEnv but uses the specified environment instead of the
// current process environment.
func LookupEnv(env []string, key string) (string, bool) {
	envMap := ToMap(env)
	val, ok := envMap[key]
	return val, ok
}

// Like os.Getenv but uses the specified environment instead of the
// current process environment.
func Getenv(env []string, key string) string {
	envMap := ToMap(env)
	return envMap[key]
}

// Like os.Setenv but uses the specified environment instead of the
// current process environment.
func Setenv(env []string, key, value string) ([]string, error) {
	if strings.ContainsAny(key, "="+"\x00") {
		return nil, errors.Errorf("invalid key: %q", key)
	}

	if strings.ContainsRune(value, '\x00') {
		return nil, errors.Errorf("invalid value: %q", value)
	}

	kv := key + "=" + value

	// Check if the key is already set
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			// Replace the value
			env[i] = kv
			return env, nil
		}
	}

	// The key is not set yet, append it
	env = append(env, kv)
	return env, nil
}

// Copy copies all environment variables from src to dst. When an
// environment variable is already set in dst, the value in dst is
// overwritten.
func Copy(dst []string, src []string) ([]string, error) {
	var err error
	for key, value := range ToMap(src) {
		dst, err = Setenv(dst, key, value)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// ToMap converts the specified strings representing an environment in
// the form "key=value" to a map.
func ToMap(env []string) map[string]string {
	res := make(map[string]string)
	for _, e := range env {
		s := strings.SplitN(e, "=", 2)
		if len(s) != 2 {
			continue
		}
		key, val := s[0], s[1]
		res[key] = val
	}
	return res
}

func QuotedEnv(env []string) []string {
	var quotedEnv []string
	for _, e := range env {
		s := strings.SplitN(e, "=", 2)
		k, v := s[0], s[1]
		quotedEnv = append(quotedEnv, fmt.Sprintf("%s='%s'", k, v))
	}
	return quotedEnv
}

// QuotedCommandWithEnv returns a string which can be executed in a
// shell to run the specified command with the specified environment
// variables. Useful for debug output to be able to run commands manually.
//
// Note: When the result is printed, make sure that env doesn't contain
// arbitrary environment variables from the host to avoid leaking
// secrets in the log output.
func QuotedCommandWithEnv(args []string, env []string) string {
	quotedStrings := append(QuotedEnv(env), stringutil.QuotedStrings(args)...)
	return strings.Join(quotedStrings, " ")
}
