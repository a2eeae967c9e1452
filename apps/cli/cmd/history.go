package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/scriptsuite/packages/db"
	"github.com/abdul-hamid-achik/scriptsuite/packages/stats"
)

var (
	historyDBFlag    string
	historySuiteFlag string
	historyLimitFlag int
	historyCasesFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent executions from the results database",
	Long: `Show recent executions stored by 'scriptsuite run --db' together with
pass rates and test case duration percentiles.

Examples:
  scriptsuite history --db sqlite://results.db
  scriptsuite history --db results.db --suite login --limit 50`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("SCRIPTSUITE_DB", ""), "Results database, e.g. sqlite://results.db (env: SCRIPTSUITE_DB)")
	historyCmd.Flags().StringVar(&historySuiteFlag, "suite", "", "Only show executions of this suite ID")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of executions to show")
	historyCmd.Flags().IntVar(&historyCasesFlag, "slowest", 10, "Number of slowest test cases to show")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	if historyDBFlag == "" {
		return exitf(ExitUsageError, "--db is required")
	}

	store, err := db.Open(historyDBFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(baseContext(cmd), 30*time.Second)
	defer cancel()

	results, err := store.Recent(ctx, historySuiteFlag, historyLimitFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No executions recorded.")
		return nil
	}

	runs := table.NewWriter()
	runs.SetOutputMirror(out)
	runs.SetStyle(table.StyleLight)
	runs.SetTitle("Recent executions")
	runs.AppendHeader(table.Row{"Started", "Suite", "Status", "Passed", "Failed", "Errors", "Skipped", "Duration", "ID"})
	for _, r := range results {
		runs.AppendRow(table.Row{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.SuiteName,
			r.Status,
			r.Summary.Passed,
			r.Summary.Failed,
			r.Summary.Errors,
			r.Summary.Skipped,
			r.Duration.Round(time.Millisecond),
			r.ID,
		})
	}
	runs.Render()

	report := stats.Durations(results)
	fmt.Fprintf(out, "\nPass rate: %.1f%% of %d executions\n", report.PassRate()*100, report.Executions)
	fmt.Fprintf(out, "Case durations: p50 %s, p95 %s, p99 %s, max %s (%d runs)\n\n",
		report.Overall.P50, report.Overall.P95, report.Overall.P99, report.Overall.Max, report.Overall.Count)

	cases := table.NewWriter()
	cases.SetOutputMirror(out)
	cases.SetStyle(table.StyleLight)
	cases.SetTitle("Slowest test cases")
	cases.AppendHeader(table.Row{"Test case", "Runs", "Pass rate", "Attempts", "p50", "p95", "p99", "Max"})
	cases.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for i, c := range report.Cases {
		if historyCasesFlag > 0 && i >= historyCasesFlag {
			break
		}
		cases.AppendRow(table.Row{
			c.Name,
			c.Runs,
			fmt.Sprintf("%.0f%%", c.PassRate()*100),
			c.Attempts,
			c.Latency.P50,
			c.Latency.P95,
			c.Latency.P99,
			c.Latency.Max,
		})
	}
	cases.Render()

	return nil
}
