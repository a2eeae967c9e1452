package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// watch re-runs every suite when a suite or script file changes, until ctx
// is done.
func (s *session) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	add := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		watchedDirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			s.log.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}
	for _, file := range s.files {
		add(filepath.Dir(file))
	}
	if s.scriptsDir != "" {
		if info, err := os.Stat(s.scriptsDir); err == nil && info.IsDir() {
			add(s.scriptsDir)
		}
	}

	out := s.cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounce <-chan time.Time
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isSuiteFile(event.Name) && !isWatchedScript(event.Name) {
				continue
			}
			changed = event.Name
			debounce = time.After(WatchDebounceDelay)

		case <-debounce:
			debounce = nil
			fmt.Fprintf(out, "\nFile changed: %s\nRe-running suites...\n\n", changed)
			s.runAll(ctx)
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", "error", err)
		}
	}
}

func isWatchedScript(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range suite.ScriptExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
