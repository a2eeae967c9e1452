package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/config"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// SuiteExtensions lists the file extensions treated as suite documents.
var SuiteExtensions = []string{".yaml", ".yml", ".json"}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSuiteFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if isSuiteFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

func isSuiteFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range config.ConfigFilenames {
		if base == name {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SuiteExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// loadSuite reads, validates and attaches scripts to the suite at path.
// Scripts found in scriptsDir are available to the suite; inline scripts
// with the same ID win.
func loadSuite(path, scriptsDir string) (*suite.Suite, *suite.Library, error) {
	s, err := suite.LoadFile(path)
	if err != nil {
		return nil, nil, withExitCode(ExitParseError, err)
	}
	if err := s.Validate(); err != nil {
		return nil, nil, withExitCode(ExitParseError, fmt.Errorf("%s: %w", path, err))
	}

	library := suite.NewLibrary()
	if scriptsDir != "" {
		if !filepath.IsAbs(scriptsDir) {
			if _, err := os.Stat(scriptsDir); err != nil {
				scriptsDir = filepath.Join(filepath.Dir(path), scriptsDir)
			}
		}
		dirLib, err := suite.LoadLibraryDir(scriptsDir)
		if err != nil {
			return nil, nil, withExitCode(ExitConfigError, err)
		}
		library.Merge(dirLib)
	}
	library.Merge(s.Scripts)

	return s, library, nil
}

// filterByTags disables every case that carries none of tags.
func filterByTags(s *suite.Suite, tags []string) {
	if len(tags) == 0 {
		return
	}
	for _, tc := range s.TestCases {
		if !tc.HasAnyTag(tags) {
			tc.Enabled = false
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseVars turns repeated k=v flags into a map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
