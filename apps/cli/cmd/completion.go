package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/config"
	"github.com/abdul-hamid-achik/scriptsuite/packages/notify"
	"github.com/abdul-hamid-achik/scriptsuite/packages/output"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a completion script for scriptsuite and print it to stdout.

  source <(scriptsuite completion bash)
  scriptsuite completion zsh > "${fpath[1]}/_scriptsuite"
  scriptsuite completion fish | source
  scriptsuite completion powershell | Out-String | Invoke-Expression

Suite arguments of run, validate and list complete to .yaml, .yml and
.json files; --env completes to the environments in the config file.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, out := cmd.Root(), cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		default:
			return root.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	for _, c := range []*cobra.Command{runCmd, validateCmd, listCmd} {
		c.ValidArgsFunction = completeSuiteFiles
	}
}

// registerRunCompletions runs from run.go's init, after the flags exist.
func registerRunCompletions() {
	policies := []string{string(notify.NotifyAlways), string(notify.NotifyFailure), string(notify.NotifySuccess), string(notify.NotifyRecovery)}
	_ = runCmd.RegisterFlagCompletionFunc("env", completeEnvironments)
	_ = runCmd.RegisterFlagCompletionFunc("notify-on", cobra.FixedCompletions(policies, cobra.ShellCompDirectiveNoFileComp))
	_ = runCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(output.Formats, cobra.ShellCompDirectiveNoFileComp))
	_ = runCmd.RegisterFlagCompletionFunc("notify", cobra.FixedCompletions([]string{"slack", "teams"}, cobra.ShellCompDirectiveNoFileComp))
}

func completeSuiteFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	exts := make([]string, len(SuiteExtensions))
	for i, e := range SuiteExtensions {
		exts[i] = strings.TrimPrefix(e, ".")
	}
	return exts, cobra.ShellCompDirectiveFilterFileExt
}

func completeEnvironments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for name := range cfg.Environments {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
