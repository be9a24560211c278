package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/playback"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/store"
)

var (
	stylePassage  = lipgloss.NewStyle().Width(72).Foreground(colorWhite)
	styleOption   = lipgloss.NewStyle().Foreground(colorCyan)
	styleEnd      = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleBarFull  = lipgloss.NewStyle().Foreground(colorGreen)
	styleBarEmpty = lipgloss.NewStyle().Foreground(colorDim)
)

const progressWidth = 30

func (c *CLI) playCommand() *cobra.Command {
	var (
		restart bool
		script  string
	)

	cmd := &cobra.Command{
		Use:   "play [story.json]",
		Short: "Read a story in the terminal",
		Long: `Read a story in the terminal.

With a file the story starts from the beginning. Without one the saved
reading position is resumed, or the draft is started when nothing is saved.
The position is saved as you read.

Keys: 1-9 choose an option, b go back (when the story allows it),
r restart, q quit.

--script runs the same keys non-interactively, e.g. --script 1,2,b,1, and
prints where the reader ends up.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runPlay(cmd.Context(), input, restart, script)
		},
	}

	cmd.Flags().BoolVar(&restart, "restart", false, "ignore the saved position")
	cmd.Flags().StringVar(&script, "script", "", "comma-separated keys to play without the interactive view")

	return cmd
}

func (c *CLI) runPlay(ctx context.Context, input string, restart bool, script string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var p *playback.Player
	if input != "" {
		s, err := c.loadStory(ctx, input)
		if err != nil {
			return err
		}
		p = playback.New(s)
	} else {
		d, err := store.LoadDraft(ctx, st, story.DefaultEnv())
		if err != nil && d.Nodes == nil {
			return err
		}
		p, err = store.LoadPlayer(ctx, st, d.Story)
		if err != nil {
			c.out.warning("%v", err)
		}
	}
	if restart {
		p.Restart()
	}

	logger := loggerFromContext(ctx)
	db := store.NewDebouncer(st, store.WithDelay(cfg.Limits.Debounce), store.WithLogger(logger))
	m := newPlayModel(p, func(p *playback.Player) {
		data, err := json.Marshal(p.State())
		if err != nil {
			logger.Error("encode progress", "err", err)
			return
		}
		db.Schedule(store.KeyPlayerState, data)
	})
	m.save(p)

	if script != "" {
		for _, key := range strings.Split(script, ",") {
			next, _ := m.press(strings.TrimSpace(key))
			m = next
		}
		c.out.line(m.View())
	} else {
		if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
			db.Close(context.WithoutCancel(ctx))
			return err
		}
	}
	return db.Close(context.WithoutCancel(ctx))
}

// =============================================================================
// playModel - Interactive reader
// =============================================================================

// playModel renders the player and maps keys to moves. save is called
// after every move.
type playModel struct {
	player *playback.Player
	save   func(*playback.Player)
	status string
}

func newPlayModel(p *playback.Player, save func(*playback.Player)) playModel {
	if save == nil {
		save = func(*playback.Player) {}
	}
	return playModel{player: p, save: save}
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		next, quit := m.press(msg.String())
		if quit {
			return next, tea.Quit
		}
		return next, nil
	}
	return m, nil
}

// press applies one key and reports whether the reader asked to quit.
func (m playModel) press(key string) (playModel, bool) {
	m.status = ""
	switch key {
	case "q", "ctrl+c", "esc":
		return m, true
	case "b", "left":
		if !m.player.GoBack() {
			m.status = "Going back is not possible here."
			return m, false
		}
	case "r":
		m.player.Restart()
	default:
		k, err := strconv.Atoi(key)
		if err != nil {
			return m, false
		}
		if !m.player.SelectOption(k - 1) {
			m.status = "That option leads nowhere yet."
			return m, false
		}
	}
	m.save(m.player)
	return m, false
}

func (m playModel) View() string {
	var b strings.Builder
	s := m.player.Story()

	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	if m.player.ShowProgress() {
		b.WriteString(progressBar(m.player.Progress()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	n, ok := m.player.Current()
	if !ok {
		b.WriteString(StyleDim.Render("This story has no passages yet."))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(stylePassage.Render(n.Text))
	b.WriteString("\n\n")

	if m.player.IsEnding() {
		b.WriteString(styleEnd.Render("The End"))
		b.WriteString("\n")
	}
	for i, opt := range n.Options {
		line := fmt.Sprintf("%d. %s", i+1, opt.Text)
		if s.Has(opt.Next) {
			b.WriteString(styleOption.Render(line))
		} else {
			b.WriteString(StyleDim.Render(line + " (leads nowhere yet)"))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(m.status))
		b.WriteString("\n")
	}

	keys := []string{}
	if len(n.Options) > 0 {
		keys = append(keys, "1-9 choose")
	}
	if m.player.CanGoBack() {
		keys = append(keys, "b back")
	}
	keys = append(keys, "r restart", "q quit")
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(strings.Join(keys, "  ")))
	return b.String()
}

func progressBar(p float64) string {
	p = min(max(p, 0), 1)
	full := int(p*progressWidth + 0.5)
	return styleBarFull.Render(strings.Repeat("█", full)) +
		styleBarEmpty.Render(strings.Repeat("░", progressWidth-full)) +
		StyleDim.Render(fmt.Sprintf(" %3.0f%%", p*100))
}
