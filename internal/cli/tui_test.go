package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/storyweave/pkg/gallery"
	"github.com/matzehuels/storyweave/pkg/playback"
	"github.com/matzehuels/storyweave/pkg/story"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func forest() story.Story {
	return story.Story{
		Title:               "Forest",
		Start:               "edge",
		ShowProgress:        true,
		AllowBackNavigation: true,
		Nodes: map[string]story.Node{
			"edge":  {Text: "Trees ahead.", Options: []story.Option{{Text: "Walk in", Next: "glade"}, {Text: "Wait", Next: ""}}, CreatedAt: 1},
			"glade": {Text: "A quiet glade.", Options: []story.Option{{Text: "Rest", Next: "sleep"}}, CreatedAt: 2},
			"sleep": {Text: "You sleep.", Options: []story.Option{}, CreatedAt: 3},
		},
	}
}

func TestPlayModel(t *testing.T) {
	saves := 0
	var m tea.Model = newPlayModel(playback.New(forest()), func(*playback.Player) { saves++ })

	m, _ = m.Update(key("2"))
	if v := m.View(); !strings.Contains(v, "leads nowhere") || !strings.Contains(v, "Trees ahead.") {
		t.Errorf("unlinked option moved the reader:\n%s", v)
	}
	if saves != 0 {
		t.Errorf("saves = %d after a refused move", saves)
	}

	m, _ = m.Update(key("1"))
	m, _ = m.Update(key("1"))
	v := m.View()
	if !strings.Contains(v, "You sleep.") || !strings.Contains(v, "The End") {
		t.Errorf("did not reach the ending:\n%s", v)
	}
	if !strings.Contains(v, "100%") {
		t.Errorf("progress missing at the last node:\n%s", v)
	}

	m, _ = m.Update(key("b"))
	if !strings.Contains(m.View(), "A quiet glade.") {
		t.Errorf("back did not return to the glade:\n%s", m.View())
	}
	m, _ = m.Update(key("r"))
	if !strings.Contains(m.View(), "Trees ahead.") {
		t.Errorf("restart did not return to the start:\n%s", m.View())
	}
	if saves != 4 {
		t.Errorf("saves = %d, want 4", saves)
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("q did not quit")
	}
}

func TestPlayModelNoBack(t *testing.T) {
	s := forest()
	s.AllowBackNavigation = false
	s.ShowProgress = false
	m := newPlayModel(playback.New(s), nil)

	m, _ = m.press("1")
	m, _ = m.press("b")
	v := m.View()
	if !strings.Contains(v, "A quiet glade.") || !strings.Contains(v, "not possible") {
		t.Errorf("back moved without permission:\n%s", v)
	}
	if strings.Contains(v, "b back") || strings.Contains(v, "%") {
		t.Errorf("view offers back or progress:\n%s", v)
	}
}

func TestGalleryModel(t *testing.T) {
	entries := []gallery.Entry{
		{ID: "one", Story: forest()},
		{ID: "two", Story: story.Story{Title: "Second", Nodes: forest().Nodes}},
	}
	var m tea.Model = newGalleryModel(entries)
	if v := m.View(); !strings.Contains(v, "Forest") || !strings.Contains(v, "[1/2]") {
		t.Errorf("view:\n%s", v)
	}

	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("down"))
	m, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("enter did not quit")
	}
	sel := m.(galleryModel).selected
	if sel == nil || sel.ID != "two" {
		t.Errorf("selected = %+v, want two", sel)
	}

	m = newGalleryModel(entries)
	m, _ = m.Update(key("esc"))
	if m.(galleryModel).selected != nil {
		t.Error("esc selected an entry")
	}
}

func TestGalleryModelReload(t *testing.T) {
	reloads := 0
	m := newGalleryModel([]gallery.Entry{{ID: "one", Story: forest()}})
	m.reload = func() { reloads++ }

	var tm tea.Model = m
	tm, _ = tm.Update(key("r"))
	tm, _ = tm.Update(key("r"))
	if reloads != 1 {
		t.Errorf("reloads = %d, want 1 while a fetch is running", reloads)
	}
	if v := tm.View(); !strings.Contains(v, "reloading") {
		t.Errorf("view does not show the reload:\n%s", v)
	}

	fresh := []gallery.Entry{
		{ID: "a", Story: story.Story{Title: "Alpha", Nodes: forest().Nodes}},
		{ID: "b", Story: story.Story{Title: "Beta", Nodes: forest().Nodes}},
	}
	tm, _ = tm.Update(manifestMsg{entries: fresh})
	if v := tm.View(); !strings.Contains(v, "Alpha") || !strings.Contains(v, "[1/2]") {
		t.Errorf("view after reload:\n%s", v)
	}

	tm, _ = tm.Update(key("r"))
	tm, _ = tm.Update(manifestMsg{err: errors.New("gallery offline")})
	gm := tm.(galleryModel)
	if len(gm.entries) != 2 || !strings.Contains(gm.View(), "gallery offline") {
		t.Errorf("failed reload replaced entries or hid the error: %d entries", len(gm.entries))
	}
}

func TestActionModel(t *testing.T) {
	var m tea.Model = actionModel{title: "Forest"}
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("enter"))
	if got := m.(actionModel).selected; got != actionImport {
		t.Errorf("selected = %q, want %q", got, actionImport)
	}
}

func TestNodeTable(t *testing.T) {
	out := nodeTable(forest(), "glade")
	for _, want := range []string{"Node 1", "Node 2", "Node 3", "▸ Node 2", "Walk in", "→ Node 2", "Trees ahead.", string(story.CategoryStart)} {
		if !strings.Contains(out, want) {
			t.Errorf("node table missing %q:\n%s", want, out)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "  0%"},
		{0.5, " 50%"},
		{1, "100%"},
		{2, "100%"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.p); !strings.Contains(got, tt.want) {
			t.Errorf("progressBar(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview("a  b\nc", 10); got != "a b c" {
		t.Errorf("preview() = %q", got)
	}
	if got := preview("abcdef", 3); got != "abc..." {
		t.Errorf("preview() = %q", got)
	}
}
