package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/export"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/store"
	"github.com/matzehuels/storyweave/pkg/validate"
)

func (c *CLI) exportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [story.json]",
		Short: "Export a story as JSON or a playable HTML page",
		Long: `Export a story as JSON or a playable HTML page.

Without an argument the saved draft is exported. Missing title and author
get defaults, labels are recomputed and every option is annotated with the
label of its target. The result must pass strict validation.

The HTML page is self-contained and remembers the reader's position in the
browser.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runExport(cmd.Context(), input, format, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format: json, html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: derived from the title)")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, input, format, output string) error {
	var encode func(story.Story) ([]byte, error)
	switch format = strings.ToLower(format); format {
	case "json":
		encode = export.JSON
	case "html":
		encode = export.HTML
	default:
		return fmt.Errorf("unknown export format %q (want json or html)", format)
	}

	s, err := c.loadStory(ctx, input)
	if err != nil {
		return err
	}
	data, err := encode(s)
	if err != nil {
		return err
	}

	path := output
	if path == "" {
		path = export.Filename(s.Title, format)
	}
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	c.out.success("Exported %s", format)
	c.out.file(path)
	return nil
}

// loadStory reads input in import mode, or the saved draft when input is empty.
func (c *CLI) loadStory(ctx context.Context, input string) (story.Story, error) {
	cfg, err := c.config()
	if err != nil {
		return story.Story{}, err
	}
	if input != "" {
		data, err := c.readInput(input)
		if err != nil {
			return story.Story{}, err
		}
		return cfg.Validator().Decode(data, validate.Import)
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return story.Story{}, err
	}
	defer st.Close()
	d, err := store.LoadDraft(ctx, st, story.DefaultEnv())
	if err != nil {
		if d.Nodes == nil {
			return story.Story{}, err
		}
		c.out.warning("%v", err)
	}
	return d.Story, nil
}
