package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"

	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "scriptsuite",
	Short: "Run ordered script test suites against any target.",
	Long: `scriptsuite executes suites of test cases, each bound to a script, against a
script runner: a local shell or a remote agent. Cases run in order, honour
their dependencies, and report assertions printed by the scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("SCRIPTSUITE_LOG_LEVEL", "warn"), "Diagnostic log level: debug, info, warn, error (env: SCRIPTSUITE_LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// newLogger builds the diagnostic logger. Diagnostics go to stderr so they
// never mix with formatter output.
func newLogger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevelFlag) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
