package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/storyweave/pkg/gallery"
	"github.com/matzehuels/storyweave/pkg/story"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// galleryModel - Interactive story selection
// =============================================================================

// galleryModel is the bubbletea model for picking a gallery entry.
type galleryModel struct {
	entries  []gallery.Entry
	cursor   int
	selected *gallery.Entry
	height   int
	offset   int

	// reload refetches the manifest; the result arrives as a manifestMsg.
	reload  func()
	loading bool
	err     error
}

// manifestMsg carries the outcome of a background manifest fetch.
type manifestMsg struct {
	entries []gallery.Entry
	err     error
}

func newGalleryModel(entries []gallery.Entry) galleryModel {
	return galleryModel{entries: entries, height: 15}
}

func (m galleryModel) Init() tea.Cmd {
	return nil
}

func (m galleryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "r":
			if m.reload != nil && !m.loading {
				m.loading = true
				m.reload()
			}
		case "enter":
			if len(m.entries) == 0 {
				return m, nil
			}
			e := m.entries[m.cursor]
			m.selected = &e
			return m, tea.Quit
		}
	case manifestMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil && len(msg.entries) > 0 {
			m.entries = msg.entries
			m.cursor, m.offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m galleryModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Story Gallery"))
	b.WriteString("\n")
	hints := "↑/↓ navigate  ⏎ select  q quit"
	if m.reload != nil {
		hints = "↑/↓ navigate  ⏎ select  r reload  q quit"
	}
	b.WriteString(listDimStyle.Render(hints))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.entries))

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		author := e.Story.Author
		if author == "" {
			author = "—"
		}
		rows = append(rows, []string{cursor, preview(e.Title(), 32), author, fmt.Sprintf("%d", len(e.Story.Nodes)), endings(e.Story)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Title", "Author", "Nodes", "Endings").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle()
			if col >= 2 {
				base = base.Foreground(colorDim)
			}
			if m.offset+row == m.cursor {
				if col < 2 {
					return base.Foreground(colorGreen).Bold(true)
				}
				return base.Foreground(colorGray).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.cursor < len(m.entries) {
		if desc := m.entries[m.cursor].Story.Description; desc != "" {
			b.WriteString(listNormalStyle.Render("  " + preview(desc, 72)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.entries))))
	switch {
	case m.loading:
		b.WriteString(listDimStyle.Render("  reloading..."))
	case m.err != nil:
		b.WriteString(StyleError.Render("  " + m.err.Error()))
	}

	return b.String()
}

func endings(s story.Story) string {
	n := 0
	for _, node := range s.Nodes {
		if node.IsEnding() {
			n++
		}
	}
	return fmt.Sprintf("%d", n)
}

// =============================================================================
// actionModel - Choose what to do with a gallery entry
// =============================================================================

type galleryAction string

const (
	actionPlay   galleryAction = "play"
	actionImport galleryAction = "import"
	actionSave   galleryAction = "save"
)

var galleryActions = []struct {
	action galleryAction
	label  string
}{
	{actionPlay, "Play it now"},
	{actionImport, "Import into the draft (replaces it)"},
	{actionSave, "Save as a JSON file"},
}

// actionModel is the bubbletea model for choosing what to do with an entry.
type actionModel struct {
	title    string
	cursor   int
	selected galleryAction
}

func (m actionModel) Init() tea.Cmd {
	return nil
}

func (m actionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(galleryActions)-1 {
				m.cursor++
			}
		case "enter":
			m.selected = galleryActions[m.cursor].action
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m actionModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, a := range galleryActions {
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("> " + a.label))
		} else {
			b.WriteString(listNormalStyle.Render("  " + a.label))
		}
		b.WriteString("\n")
	}
	return b.String()
}
