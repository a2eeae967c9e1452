package env

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// SystemPrefix selects process environment variables that become suite
// variables, e.g. SCRIPTSUITE_VAR_BASE_URL becomes BASE_URL.
const SystemPrefix = "SCRIPTSUITE_VAR_"

// LoadEnvironment returns the variables of the named environment from the
// config file. An empty name yields no variables.
func LoadEnvironment(configEnvs map[string]map[string]string, name string) (map[string]string, error) {
	vars := make(map[string]string)
	if name == "" {
		return vars, nil
	}

	env, ok := configEnvs[name]
	if !ok {
		known := make([]string, 0, len(configEnvs))
		for k := range configEnvs {
			known = append(known, k)
		}
		sort.Strings(known)
		if len(known) == 0 {
			return nil, fmt.Errorf("environment %q is not defined: no environments configured", name)
		}
		return nil, fmt.Errorf("environment %q is not defined (available: %s)", name, strings.Join(known, ", "))
	}

	for k, v := range env {
		vars[k] = v
	}
	return vars, nil
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns process environment variables whose key starts with
// prefix, with the prefix removed. An empty prefix returns everything.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}
