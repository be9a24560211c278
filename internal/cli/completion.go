package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for storyweave.

To load completions:

Bash:
  $ source <(storyweave completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ storyweave completion bash > /etc/bash_completion.d/storyweave
  # macOS:
  $ storyweave completion bash > $(brew --prefix)/etc/bash_completion.d/storyweave

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ storyweave completion zsh > "${fpath[1]}/_storyweave"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ storyweave completion fish | source

  # To load completions for each session, execute once:
  $ storyweave completion fish > ~/.config/fish/completions/storyweave.fish

PowerShell:
  PS> storyweave completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> storyweave completion powershell > storyweave.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(c.out.w)
			case "zsh":
				return cmd.Root().GenZshCompletion(c.out.w)
			case "fish":
				return cmd.Root().GenFishCompletion(c.out.w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(c.out.w)
			}
			return nil
		},
	}

	return cmd
}
