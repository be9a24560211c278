package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

func (c *CLI) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [story.json]",
		Short: "Check a story document",
		Long: `Check a story document.

Loose mode (the default) accepts drafts with unlinked or dangling options.
Strict mode is what export and playback require: every node labelled and
every option leading to an existing node.

Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0], strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "require labels and resolvable options")

	return cmd
}

func (c *CLI) runValidate(input string, strict bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	data, err := c.readInput(input)
	if err != nil {
		return err
	}

	mode := validate.Loose
	if strict {
		mode = validate.Strict
	}
	s, err := cfg.Validator().Decode(data, mode)
	if err != nil {
		return err
	}

	endings := 0
	for _, n := range s.Nodes {
		if n.IsEnding() {
			endings++
		}
	}
	labels := story.Labels(s.Nodes)

	c.out.success("Valid story (%s)", mode)
	if s.Title != "" {
		c.out.keyValue("Title", s.Title)
	}
	c.out.keyValue("Nodes", strconv.Itoa(len(s.Nodes)))
	c.out.keyValue("Start", labels[s.Start])
	c.out.keyValue("Endings", strconv.Itoa(endings))
	if n := s.UnlinkedOptions(); n > 0 {
		c.out.warning("%d option(s) lead nowhere yet", n)
	}
	return nil
}
