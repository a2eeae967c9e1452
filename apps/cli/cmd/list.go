package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

var listCmd = &cobra.Command{
	Use:   "list <suite|directory>...",
	Short: "List the test cases of suite files",
	Long: `List the test cases defined in suite files, in execution order.

Examples:
  scriptsuite list login.yaml
  scriptsuite list ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return exitf(ExitUsageError, "no suite files found")
	}

	for _, file := range files {
		s, err := suite.LoadFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", s.Name, file)

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "ID", "Name", "Script", "Enabled", "Depends on", "Tags"})
		for _, tc := range s.TestCases {
			t.AppendRow(table.Row{
				tc.Order,
				tc.ID,
				tc.DisplayName(),
				tc.Script,
				yesNo(tc.Enabled),
				strings.Join(tc.Dependencies, ", "),
				strings.Join(tc.Tags, ", "),
			})
		}
		if s.Setup.Runnable() || s.Teardown.Runnable() {
			t.AppendFooter(table.Row{"", "", "setup: " + hookName(s.Setup), "", "", "", "teardown: " + hookName(s.Teardown)})
		}
		t.Render()
	}

	return nil
}

func hookName(ref suite.ScriptRef) string {
	if !ref.Runnable() {
		return "-"
	}
	return ref.Script
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
