package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Script is an executable unit of code referenced by test cases and
// setup/teardown hooks.
type Script struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Code string `json:"code" yaml:"code"`
}

// Library holds scripts keyed by ID.
type Library struct {
	scripts map[string]*Script
}

// NewLibrary creates a library holding the given scripts.
func NewLibrary(scripts ...*Script) *Library {
	l := &Library{scripts: make(map[string]*Script)}
	for _, s := range scripts {
		l.Add(s)
	}
	return l
}

// Add registers a script, replacing any script with the same ID.
func (l *Library) Add(s *Script) {
	if l.scripts == nil {
		l.scripts = make(map[string]*Script)
	}
	l.scripts[s.ID] = s
}

// Lookup returns the script with the given ID.
func (l *Library) Lookup(id string) (*Script, bool) {
	if l == nil {
		return nil, false
	}
	s, ok := l.scripts[id]
	return s, ok
}

// Len returns the number of scripts in the library.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.scripts)
}

// IDs returns the sorted script IDs.
func (l *Library) IDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, len(l.scripts))
	for id := range l.scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge copies every script of other into l. Scripts in other win.
func (l *Library) Merge(other *Library) {
	if other == nil {
		return
	}
	for _, s := range other.scripts {
		l.Add(s)
	}
}

// ScriptExtensions lists the file extensions picked up by LoadLibraryDir.
var ScriptExtensions = []string{".sh", ".js", ".py", ".script"}

// LoadLibraryDir loads every script file in dir. The file name without its
// extension becomes the script ID.
func LoadLibraryDir(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scripts directory: %w", err)
	}

	lib := NewLibrary()
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		code, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading script %s: %w", path, err)
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		lib.Add(&Script{ID: id, Name: entry.Name(), Code: string(code)})
	}
	return lib, nil
}

func isScriptFile(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range ScriptExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
