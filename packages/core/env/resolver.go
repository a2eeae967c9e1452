package env

import (
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/scriptsuite/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver substitutes ${name} placeholders. It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when a placeholder cannot be resolved
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// Resolve replaces every placeholder whose name is a known variable or a
// builtin call. Anything else is kept as written.
func (r *Resolver) Resolve(input string) string {
	return r.expand(input, r.GetVariable)
}

func (r *Resolver) expand(input string, lookup func(name string) (string, bool)) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-1])

		if builtin.IsCall(expr) {
			out, ok, err := r.funcs.Call(expr)
			if !ok {
				r.warn("unknown function: %s", expr)
				return match
			}
			if err != nil {
				r.warn("function %s failed: %v", expr, err)
				return match
			}
			return out
		}

		if val, ok := lookup(expr); ok {
			return val
		}

		r.warn("unresolved variable: %s", expr)
		return match
	})
}

// ResolveAll resolves every entry of values. Entries may refer to each
// other as well as to the resolver's variables, and an entry shadows a
// variable of the same name. Each entry is resolved once, so a builtin such
// as ${uuid()} yields one value however many entries refer to it.
// References that form a cycle are kept as written.
func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	visiting := make(map[string]bool)

	var resolve func(key string) string
	resolve = func(key string) string {
		if v, ok := out[key]; ok {
			return v
		}
		visiting[key] = true
		v := r.expand(values[key], func(name string) (string, bool) {
			if _, ok := values[name]; ok {
				if visiting[name] {
					return "", false
				}
				return resolve(name), true
			}
			return r.GetVariable(name)
		})
		delete(visiting, key)
		out[key] = v
		return v
	}

	for k := range values {
		resolve(k)
	}
	return out
}

// Unresolved lists, in order of first appearance, the placeholder names in
// input that are neither variables nor builtin calls.
func (r *Resolver) Unresolved(input string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if builtin.IsCall(expr) || r.HasVariable(expr) || seen[expr] {
			continue
		}
		seen[expr] = true
		names = append(names, expr)
	}
	return names
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

func (r *Resolver) GetVariable(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

// Clone returns a resolver with a copy of the variables that shares the
// function registry and warn func.
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Resolver{
		variables: make(map[string]string, len(r.variables)),
		funcs:     r.funcs,
		warnFunc:  r.warnFunc,
	}
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	return clone
}
