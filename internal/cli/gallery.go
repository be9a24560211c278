package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/export"
	"github.com/matzehuels/storyweave/pkg/gallery"
	"github.com/matzehuels/storyweave/pkg/playback"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/store"
)

func (c *CLI) galleryCommand() *cobra.Command {
	var (
		url     string
		list    bool
		pick    int
		action  string
		output  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Browse sample stories from a gallery manifest",
		Long: `Browse sample stories from a gallery manifest.

The manifest is a JSON array of stories (or {"id", "story"} wrappers)
downloaded from --url or the configured gallery.url. Entries that fail
validation are skipped.

Without --pick an interactive list opens. A chosen story can be played,
imported into the draft or saved as a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGallery(cmd.Context(), url, list, pick, galleryAction(action), output, refresh)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "manifest URL (default from config)")
	cmd.Flags().BoolVar(&list, "list", false, "print the entries and exit")
	cmd.Flags().IntVar(&pick, "pick", 0, "choose entry N without the interactive list")
	cmd.Flags().StringVar(&action, "action", "", "what to do with the entry: play, import, save")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file for --action save (default: derived from the title)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached manifest")

	return cmd
}

func (c *CLI) runGallery(ctx context.Context, url string, list bool, pick int, action galleryAction, output string, refresh bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if url == "" {
		url = cfg.Gallery.URL
	}
	if url == "" {
		return fmt.Errorf("no gallery URL: pass --url or set gallery.url in the config")
	}

	ch, err := c.newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()
	client := c.newGalleryClient(cfg, ch)

	sp := newSpinner(ctx, os.Stderr, "Fetching gallery...")
	sp.start()
	data, err := client.FetchRaw(ctx, url, refresh)
	sp.stop()
	if err != nil {
		return err
	}
	entries, err := gallery.Parse(data)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		c.out.warning("The gallery has no usable stories")
		return nil
	}

	if list {
		c.printGallery(entries)
		return nil
	}

	var entry *gallery.Entry
	if pick > 0 {
		if pick > len(entries) {
			return fmt.Errorf("--pick %d: the gallery has %d entries", pick, len(entries))
		}
		entry = &entries[pick-1]
	} else {
		res, err := c.pickEntry(ctx, client, url, entries)
		if err != nil {
			return err
		}
		entry = res
		if entry == nil {
			return nil
		}
	}

	if action == "" {
		res, err := tea.NewProgram(actionModel{title: entry.Title()}, tea.WithContext(ctx)).Run()
		if err != nil {
			return err
		}
		if action = res.(actionModel).selected; action == "" {
			return nil
		}
	}
	return c.useEntry(ctx, *entry, action, output)
}

// pickEntry runs the interactive list. Reloads fetch in the background and
// results that arrive after the list closed are dropped.
func (c *CLI) pickEntry(ctx context.Context, client *gallery.Client, url string, entries []gallery.Entry) (*gallery.Entry, error) {
	loader := gallery.NewLoader(client)
	loader.Refresh = true
	fetchCtx, cancel := context.WithCancel(ctx)
	defer loader.Wait()
	defer cancel()
	defer loader.Detach()

	var p *tea.Program
	m := newGalleryModel(entries)
	m.reload = func() {
		loader.Load(fetchCtx, url, func(entries []gallery.Entry, err error) {
			p.Send(manifestMsg{entries: entries, err: err})
		})
	}
	p = tea.NewProgram(m, tea.WithContext(ctx))
	res, err := p.Run()
	if err != nil {
		return nil, err
	}
	return res.(galleryModel).selected, nil
}

func (c *CLI) printGallery(entries []gallery.Entry) {
	for i, e := range entries {
		c.out.line(fmt.Sprintf("%s %s", StyleDim.Render(fmt.Sprintf("%2d.", i+1)), StyleValue.Render(e.Title())))
		if e.Story.Author != "" {
			c.out.detail("by %s", e.Story.Author)
		}
		c.out.detail("%d nodes · %s endings · id %s", len(e.Story.Nodes), endings(e.Story), e.ID)
	}
}

// useEntry plays, imports or saves a gallery story.
func (c *CLI) useEntry(ctx context.Context, e gallery.Entry, action galleryAction, output string) error {
	switch action {
	case actionSave:
		data, err := json.MarshalIndent(e.Story, "", "  ")
		if err != nil {
			return err
		}
		path := output
		if path == "" {
			path = export.Filename(e.Title(), "json")
		}
		if err := writeFile(path, data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		c.out.success("Saved %s", e.Title())
		c.out.file(path)
		c.out.nextStep("Play it", "storyweave play "+path)
		return nil

	case actionImport:
		st, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := store.SaveEditor(ctx, st, story.NewEditor(story.Import(e.Story))); err != nil {
			return err
		}
		c.out.success("Imported %s into the draft", e.Title())
		c.out.nextStep("Review it", "storyweave draft show")
		return nil

	case actionPlay:
		cfg, err := c.config()
		if err != nil {
			return err
		}
		st, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		db := store.NewDebouncer(st, store.WithDelay(cfg.Limits.Debounce), store.WithLogger(c.Logger))
		m := newPlayModel(playback.New(e.Story), func(p *playback.Player) {
			if data, err := json.Marshal(p.State()); err == nil {
				db.Schedule(store.KeyPlayerState, data)
			}
		})
		if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
			db.Close(context.WithoutCancel(ctx))
			return err
		}
		return db.Close(context.WithoutCancel(ctx))
	}
	return fmt.Errorf("unknown action %q (want play, import or save)", action)
}
