package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/pipeline"
)

// renderFlags are the drawing flags shared by diagram and watch.
type renderFlags struct {
	formats string
	style   string
	seed    uint64
	margin  float64
	scale   float64
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), png, pdf, dot, json (comma-separated)")
	cmd.Flags().StringVar(&f.style, "style", "", "visual style: simple (default), handdrawn")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for the handdrawn style")
	cmd.Flags().Float64Var(&f.margin, "margin", 0, "space around the diagram (negative for none)")
	cmd.Flags().Float64Var(&f.scale, "scale", 0, "PNG/PDF scale factor")
}

func (f *renderFlags) apply(opts *pipeline.Options) {
	opts.Formats = parseFormats(f.formats)
	if f.style != "" {
		opts.Style = f.style
	}
	if f.seed != 0 {
		opts.Seed = f.seed
	}
	if f.margin != 0 {
		opts.Margin = f.margin
	}
	if f.scale > 0 {
		opts.Scale = f.scale
	}
}

func (c *CLI) diagramCommand() *cobra.Command {
	var (
		output     string
		fromLayout bool
		refresh    bool
		lflags     layoutFlags
		rflags     renderFlags
	)

	cmd := &cobra.Command{
		Use:   "diagram [story.json]",
		Short: "Draw a story as a diagram",
		Long: `Draw a story as a diagram.

Passages are boxes colored by kind (start, ending, branching, long text),
choices are small boxes between them. SVG is drawn directly; PNG is
rendered by Graphviz from the same positions and PDF needs rsvg-convert.

With --from-layout the input is a layout produced by 'storyweave layout'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiagram(cmd.Context(), args[0], output, fromLayout, refresh, lflags, rflags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&fromLayout, "from-layout", false, "input is a layout JSON file")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	lflags.register(cmd)
	rflags.register(cmd)

	return cmd
}

func (c *CLI) runDiagram(ctx context.Context, input, output string, fromLayout, refresh bool, lflags layoutFlags, rflags renderFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	opts := cfg.PipelineOptions()
	if err := lflags.apply(&opts); err != nil {
		return err
	}
	rflags.apply(&opts)
	opts.Refresh = refresh
	opts.Logger = loggerFromContext(ctx)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	data, err := c.readInput(input)
	if err != nil {
		return err
	}

	var artifacts map[string][]byte
	if fromLayout {
		artifacts, err = pipeline.RenderFromLayoutData(ctx, data, opts)
		if err != nil {
			return err
		}
		c.out.success("Diagram rendered")
	} else {
		s, err := cfg.Validator().Decode(data, opts.ValidationMode())
		if err != nil {
			return err
		}
		runner, err := c.newRunner(ctx)
		if err != nil {
			return fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()

		sp := newSpinner(ctx, os.Stderr, "Drawing diagram...")
		sp.start()
		result, err := runner.ExecuteStory(ctx, s, opts)
		sp.stop()
		if err != nil {
			return err
		}
		artifacts = result.Artifacts
		c.out.success("Diagram rendered")
		defer c.out.stats(result.Stats.NodeCount, result.Stats.ChoiceCount, result.Stats.EdgeCount,
			result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	}

	paths := artifactPaths(output, input, opts.Formats)
	for _, format := range opts.Formats {
		path := paths[format]
		if err := writeFile(path, artifacts[format]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		c.out.file(path)
	}
	return nil
}

// artifactPaths names one output file per format. A single format with an
// explicit output uses it verbatim; otherwise the output (or the input
// without its extension) is a base path and the format is the extension.
// JSON is written as .layout.json so a story file is never overwritten.
func artifactPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := output
	if base == "" {
		base = outputPath("", input, "")
		base = strings.TrimSuffix(base, ".layout")
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, f := range formats {
		ext := f
		if f == "json" {
			ext = "layout.json"
		}
		paths[f] = base + "." + ext
	}
	return paths
}
