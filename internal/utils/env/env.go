package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var keyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ParseSpecs parses `KEY=VALUE` specs into a map. A bare `KEY` takes its value from
// the environment variable with the same name.
func ParseSpecs(specs []string) (map[string]string, error) {
	values := make(map[string]string, len(specs))

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("spec cannot be empty")
		}

		if key, value, ok := strings.Cut(spec, "="); ok {
			if !isValidKey(key) {
				return nil, fmt.Errorf("invalid key %q", key)
			}

			values[key] = value
			continue
		}

		if !isValidKey(spec) {
			return nil, fmt.Errorf("invalid key %q", spec)
		}

		value, ok := os.LookupEnv(spec)
		if !ok {
			return nil, fmt.Errorf("environment variable %q is not set", spec)
		}

		values[spec] = value
	}

	return values, nil
}

func isValidKey(k string) bool {
	return keyRegexp.MatchString(k)
}
