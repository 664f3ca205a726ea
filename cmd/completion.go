package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// detectShell auto-detects the current shell from $SHELL
func detectShell() string {
	shell := strings.ToLower(os.Getenv("SHELL"))
	switch {
	case strings.Contains(shell, "fish"):
		return "fish"
	case strings.Contains(shell, "zsh"):
		return "zsh"
	case strings.Contains(shell, "pwsh"), strings.Contains(shell, "powershell"):
		return "powershell"
	}
	return "bash"
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for psqs.

If no shell is specified, it is detected from $SHELL (bash by default).

To load completions:

Bash:
  $ source <(psqs completion bash)

Zsh:
  $ psqs completion zsh > "${fpath[1]}/_psqs"

Fish:
  $ psqs completion fish > ~/.config/fish/completions/psqs.fish

PowerShell:
  PS> psqs completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}
		return genCompletion(cmd.Root(), shell, os.Stdout)
	},
}

func genCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return root.GenBashCompletionV2(w, true)
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
