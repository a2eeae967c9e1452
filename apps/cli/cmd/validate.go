package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

var validateCmd = &cobra.Command{
	Use:   "validate <suite|directory>...",
	Short: "Validate suite files",
	Long: `Validate suite files against the suite document schema and the suite
rules (names, script references, dependencies, timeouts, ordering) without
executing them.

Examples:
  scriptsuite validate login.yaml
  scriptsuite validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return exitf(ExitUsageError, "no suite files found")
	}

	hasErrors := false
	for _, file := range files {
		problems, err := validateFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		if len(problems) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Invalid: %s\n", file)
			for _, p := range problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
			}
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
	}

	if hasErrors {
		return exitf(ExitParseError, "validation failed")
	}

	return nil
}

// validateFile returns schema problems followed by suite rule violations.
func validateFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := suite.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	problems, err := suite.ValidateSchema(raw)
	if err != nil {
		return nil, err
	}

	if err := suite.FromMap(raw).Validate(); err != nil {
		var verr *suite.ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Violations...)
		} else {
			problems = append(problems, err.Error())
		}
	}
	return problems, nil
}
