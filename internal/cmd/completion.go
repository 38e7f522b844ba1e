package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate a shell completion script for upkeep.

Bash:
  $ source <(upkeep completion bash)
  $ upkeep completion bash > /etc/bash_completion.d/upkeep

Zsh (requires compinit):
  $ upkeep completion zsh > "${fpath[1]}/_upkeep"

Fish:
  $ upkeep completion fish > ~/.config/fish/completions/upkeep.fish

PowerShell:
  PS> upkeep completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCompletion(cmd.Root(), args[0], cmd)
		},
	}
}

func writeCompletion(root *cobra.Command, shell string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return fmt.Errorf("unsupported shell %q", shell)
}
