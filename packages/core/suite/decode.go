package suite

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and decodes a suite document from path.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// derivedID names a suite or case that has no explicit id. The ID is a
// SHA-1 UUID of the given parts, so reloading the same document yields the
// same IDs and its history accumulates under one suite. Without any
// non-empty part the ID is random.
func derivedID(parts ...string) string {
	key := strings.Join(parts, "\x00")
	if strings.Trim(key, "\x00") == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("scriptsuite:"+key)).String()
}

// Parse decodes a YAML (or JSON) suite document. Only syntax errors are
// reported; missing or malformed fields fall back to defaults and surface
// later through Validate.
func Parse(data []byte) (*Suite, error) {
	raw, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return FromMap(raw), nil
}

// ParseDocument decodes a suite document into its plain-data form.
func ParseDocument(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid suite document: %w", err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return raw, nil
}

// FromMap builds a suite from loosely typed input, filling defaults for
// anything missing. It never fails; use Validate to check the result.
func FromMap(raw map[string]any) *Suite {
	d := &decoder{}
	now := time.Now()

	s := &Suite{
		ID:            d.stringVal(raw, "id"),
		Name:          d.stringVal(raw, "name"),
		Description:   d.stringVal(raw, "description"),
		Tags:          d.stringList(raw, "tags"),
		Configuration: d.configuration(raw["configuration"]),
		Variables:     d.variables(raw["variables"]),
		Scripts:       d.library(raw["scripts"]),
	}
	if s.ID == "" {
		s.ID = derivedID(s.Name)
	}

	s.Setup = d.scriptRef(first(raw, "setup", "setupScript"))
	s.Teardown = d.scriptRef(first(raw, "teardown", "teardownScript"))

	if items, ok := first(raw, "testCases", "cases").([]any); ok {
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				d.issue("testCases[%d]: expected a mapping", i)
				continue
			}
			s.TestCases = append(s.TestCases, d.testCase(m, i, s.ID))
		}
	}
	s.Reorder()

	s.CreatedAt = d.timeVal(raw, "createdAt", now)
	s.UpdatedAt = d.timeVal(raw, "updatedAt", s.CreatedAt)
	if t := d.timeVal(raw, "lastExecutedAt", time.Time{}); !t.IsZero() {
		s.LastExecutedAt = &t
	}

	s.issues = d.issues
	return s
}

func (d *decoder) testCase(m map[string]any, index int, suiteID string) *TestCase {
	tc := &TestCase{
		ID:           d.stringVal(m, "id"),
		Name:         d.stringVal(m, "name"),
		Description:  d.stringVal(m, "description"),
		Script:       d.stringVal(first(m, "script", "scriptId"), ""),
		Enabled:      d.boolVal(m, "enabled", true),
		Order:        index,
		Dependencies: d.stringList(m, "dependencies"),
		Tags:         d.stringList(m, "tags"),
	}
	if tc.ID == "" {
		tc.ID = derivedID(suiteID, strconv.Itoa(index), tc.Name)
	}
	if order, ok := d.intVal(m, "order"); ok {
		tc.Order = order
	}
	if timeout, ok := d.durationVal(m, "timeout", fmt.Sprintf("test case %q timeout", tc.ID)); ok {
		tc.Timeout = &timeout
	}
	if retries, ok := d.intVal(m, "retryCount"); ok {
		tc.RetryCount = &retries
	}
	return tc
}

func (d *decoder) configuration(v any) Configuration {
	cfg := DefaultConfiguration()
	m, ok := v.(map[string]any)
	if !ok {
		return cfg
	}
	cfg.StopOnFailure = d.boolVal(m, "stopOnFailure", cfg.StopOnFailure)
	cfg.Parallel = d.boolVal(m, "parallel", cfg.Parallel)
	if timeout, ok := d.durationVal(m, "timeout", "configuration timeout"); ok {
		cfg.Timeout = timeout
	}
	if retries, ok := d.intVal(m, "retryCount"); ok {
		cfg.RetryCount = retries
	}
	return cfg
}

func (d *decoder) scriptRef(v any) ScriptRef {
	switch val := v.(type) {
	case string:
		return ScriptRef{Script: val, Enabled: val != ""}
	case map[string]any:
		script := d.stringVal(first(val, "script", "scriptId"), "")
		return ScriptRef{
			Script:  script,
			Enabled: d.boolVal(val, "enabled", script != ""),
		}
	}
	return ScriptRef{}
}

func (d *decoder) library(v any) *Library {
	lib := NewLibrary()
	switch val := v.(type) {
	case []any:
		for i, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				d.issue("scripts[%d]: expected a mapping", i)
				continue
			}
			id := d.stringVal(m, "id")
			if id == "" {
				d.issue("scripts[%d]: id is required", i)
				continue
			}
			lib.Add(&Script{ID: id, Name: d.stringVal(m, "name"), Code: d.stringVal(m, "code")})
		}
	case map[string]any:
		for id, item := range val {
			switch body := item.(type) {
			case string:
				lib.Add(&Script{ID: id, Code: body})
			case map[string]any:
				lib.Add(&Script{ID: id, Name: d.stringVal(body, "name"), Code: d.stringVal(body, "code")})
			}
		}
	}
	return lib
}

func (d *decoder) variables(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	vars := make(map[string]string, len(m))
	for k, val := range m {
		vars[k] = fmt.Sprintf("%v", val)
	}
	return vars
}

type decoder struct {
	issues []string
}

func (d *decoder) issue(format string, args ...any) {
	d.issues = append(d.issues, fmt.Sprintf(format, args...))
}

// first returns the value of the first key present in m.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func (d *decoder) stringVal(v any, key string) string {
	if m, ok := v.(map[string]any); ok && key != "" {
		v = m[key]
	}
	switch val := v.(type) {
	case string:
		return val
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", val)
	}
	return ""
}

func (d *decoder) stringList(m map[string]any, key string) []string {
	switch val := m[key].(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := d.stringVal(item, ""); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func (d *decoder) boolVal(m map[string]any, key string, def bool) bool {
	switch val := m[key].(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func (d *decoder) intVal(m map[string]any, key string) (int, bool) {
	switch val := m[key].(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i, true
		}
		d.issue("%s: %q is not an integer", key, val)
	}
	return 0, false
}

// durationVal accepts Go duration strings or numbers of milliseconds.
func (d *decoder) durationVal(m map[string]any, key, label string) (time.Duration, bool) {
	v, present := m[key]
	if !present || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return time.Duration(val) * time.Millisecond, true
	case int64:
		return time.Duration(val) * time.Millisecond, true
	case uint64:
		return time.Duration(val) * time.Millisecond, true
	case float64:
		return time.Duration(val * float64(time.Millisecond)), true
	case string:
		if dur, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return dur, true
		}
		if ms, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return time.Duration(ms) * time.Millisecond, true
		}
	}
	d.issue("%s: %v is not a valid duration", label, v)
	return 0, false
}

func (d *decoder) timeVal(m map[string]any, key string, def time.Time) time.Time {
	switch val := m[key].(type) {
	case time.Time:
		return val
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t
		}
	}
	return def
}
