package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/pipeline"
	"github.com/matzehuels/storyweave/pkg/validate"
)

const defaultWatchDelay = 200 * time.Millisecond

func (c *CLI) watchCommand() *cobra.Command {
	var (
		output string
		delay  time.Duration
		lflags layoutFlags
		rflags renderFlags
	)

	cmd := &cobra.Command{
		Use:   "watch [story.json]",
		Short: "Redraw the diagram whenever the story file changes",
		Long: `Redraw the diagram whenever the story file changes.

The diagram is drawn once at start and again after every save. Invalid
intermediate versions are reported and skipped; the last good diagram stays
on disk. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], output, delay, lflags, rflags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().DurationVar(&delay, "delay", defaultWatchDelay, "quiet period after a change before redrawing")
	lflags.register(cmd)
	rflags.register(cmd)

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input, output string, delay time.Duration, lflags layoutFlags, rflags renderFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	opts := cfg.PipelineOptions()
	if err := lflags.apply(&opts); err != nil {
		return err
	}
	rflags.apply(&opts)
	opts.Logger = loggerFromContext(ctx)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	path, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// Editors often save by renaming a temp file over the original, which
	// drops a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	paths := artifactPaths(output, input, opts.Formats)
	redraw := func() {
		c.redraw(ctx, runner, cfg.Validator(), input, paths, opts)
	}
	redraw()
	c.out.info("Watching %s", input)

	timer := time.NewTimer(delay)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			c.Logger.Debug("story changed", "op", ev.Op.String())
			timer.Reset(delay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "err", err)
		case <-timer.C:
			redraw()
		}
	}
}

// redraw renders input once and reports the outcome. Failures are printed,
// not returned, so the watch keeps running.
func (c *CLI) redraw(ctx context.Context, runner *pipeline.Runner, v validate.Validator, input string, paths map[string]string, opts pipeline.Options) {
	sw := startStopwatch(c.Logger)
	data, err := c.readInput(input)
	if err != nil {
		c.out.failure("%v", err)
		return
	}
	s, err := v.Decode(data, opts.ValidationMode())
	if err != nil {
		c.out.failure("%v", err)
		return
	}
	result, err := runner.ExecuteStory(ctx, s, opts)
	if err != nil {
		c.out.failure("%v", err)
		return
	}
	for _, format := range opts.Formats {
		if err := writeFile(paths[format], result.Artifacts[format]); err != nil {
			c.out.failure("write %s: %v", paths[format], err)
			return
		}
	}
	c.out.success("Redrawn at %s", time.Now().Format("15:04:05"))
	c.out.stats(result.Stats.NodeCount, result.Stats.ChoiceCount, result.Stats.EdgeCount,
		result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	sw.done("redraw", "formats", opts.Formats)
}
