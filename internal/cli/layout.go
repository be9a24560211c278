package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/pipeline"
)

// layoutFlags are the flags shared by layout, diagram and watch.
type layoutFlags struct {
	mode      string
	direction string
	nodeSep   float64
	rankSep   float64
	sweeps    int
	overrides string
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "validation mode: loose (default), strict")
	cmd.Flags().StringVarP(&f.direction, "direction", "d", "", "layout direction: TB (default), LR")
	cmd.Flags().Float64Var(&f.nodeSep, "node-sep", 0, "space between boxes in a rank")
	cmd.Flags().Float64Var(&f.rankSep, "rank-sep", 0, "space between ranks")
	cmd.Flags().IntVar(&f.sweeps, "sweeps", 0, "crossing-reduction sweeps")
	cmd.Flags().StringVar(&f.overrides, "pins", "", "JSON file of manual box positions")
}

// apply layers the flags that were set over the configured defaults.
func (f *layoutFlags) apply(opts *pipeline.Options) error {
	if f.mode != "" {
		opts.Mode = f.mode
	}
	if f.direction != "" {
		opts.Direction = f.direction
	}
	if f.nodeSep > 0 {
		opts.NodeSep = f.nodeSep
	}
	if f.rankSep > 0 {
		opts.RankSep = f.rankSep
	}
	if f.sweeps > 0 {
		opts.Sweeps = f.sweeps
	}
	if f.overrides != "" {
		data, err := os.ReadFile(f.overrides)
		if err != nil {
			return fmt.Errorf("read pins: %w", err)
		}
		var o layout.Overrides
		if err := json.Unmarshal(data, &o); err != nil {
			return fmt.Errorf("parse pins %s: %w", f.overrides, err)
		}
		opts.Overrides = &o
	}
	return nil
}

func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [story.json]",
		Short: "Compute the diagram layout of a story",
		Long: `Compute the diagram layout of a story.

The output is a JSON document with a box per passage and per choice, the
routed edges between them and the diagram bounds. It can be drawn later
with 'diagram --from-layout'.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, flags layoutFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	opts := cfg.PipelineOptions()
	if err := flags.apply(&opts); err != nil {
		return err
	}
	opts.Logger = loggerFromContext(ctx)
	if err := opts.ValidateForLoad(); err != nil {
		return err
	}

	data, err := c.readInput(input)
	if err != nil {
		return err
	}
	s, err := cfg.Validator().Decode(data, opts.ValidationMode())
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	watch := startStopwatch(opts.Logger)
	res, hit, err := runner.LayoutWithCacheInfo(ctx, s, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	watch.done("computed layout", "direction", opts.Direction)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	path := outputPath(output, input, ".layout.json")
	if err := writeFile(path, append(out, '\n')); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	choices := 0
	for _, n := range res.Nodes {
		if n.Kind == layout.KindChoice.String() {
			choices++
		}
	}
	c.out.success("Layout complete")
	c.out.file(path)
	c.out.stats(len(res.Nodes)-choices, choices, len(res.Edges), hit)
	c.out.newline()
	c.out.nextStep("Draw", "storyweave diagram --from-layout "+path)
	return nil
}
