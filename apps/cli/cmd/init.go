package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/config"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new scriptsuite project",
	Long: `Initialize a new scriptsuite project in the current directory.

This creates:
  - .scriptsuite.yaml  - Configuration file with environments
  - example.yaml       - Example suite

Examples:
  scriptsuite init
  scriptsuite init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", "", "Directory to initialize (default: current directory)")
}

const exampleSuite = `id: example
name: Example suite
description: Shows ordering, dependencies and assertion markers
tags: [example]
configuration:
  stopOnFailure: false
  timeout: 10s
  retryCount: 0
setup:
  script: prepare
variables:
  greeting: hello
scripts:
  - id: prepare
    code: echo "preparing ${baseUrl}"
  - id: greet
    code: |
      msg="${greeting} from ${baseUrl}"
      echo "$msg"
      echo "[PASS] greeting printed"
  - id: check-time
    code: |
      echo "run ${uuid()} at ${timestamp()}"
      test -n "$(date)" && echo "[PASS] clock available" || echo "[FAIL] no clock"
testCases:
  - id: greet
    name: Greets the target
    script: greet
    tags: [smoke]
  - id: clock
    name: Reads the clock
    script: check-time
    dependencies: [greet]
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := initDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = cwd
	}

	configFile := filepath.Join(dir, config.ConfigFilenames[0])
	exampleFile := filepath.Join(dir, "example.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return exitf(ExitUsageError, "file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.Environments = map[string]map[string]string{
		"dev":     {"baseUrl": "http://localhost:3000"},
		"staging": {"baseUrl": "https://staging.example.com"},
	}

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nscriptsuite project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'scriptsuite run example.yaml' to execute the example suite.\n")

	return nil
}
