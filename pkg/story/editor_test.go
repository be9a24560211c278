package story

import (
	"fmt"
	"testing"
	"time"

	"github.com/matzehuels/storyweave/pkg/errors"
)

func testEnv() Env {
	n := 0
	return Env{
		NewID: func() string { n++; return fmt.Sprintf("id%d", n) },
		Now:   func() time.Time { return epoch },
	}
}

func TestNewDraft(t *testing.T) {
	d := NewDraft("root", epoch)
	if d.Start != "root" || d.SelectedNode != "root" || len(d.Nodes) != 1 {
		t.Errorf("NewDraft() = %+v", d)
	}
	if !d.ShowProgress || d.AllowBackNavigation {
		t.Errorf("NewDraft() flags = progress %v back %v, want true false", d.ShowProgress, d.AllowBackNavigation)
	}
}

func TestEditorApply(t *testing.T) {
	ed := NewEditor(NewDraft("root", epoch), WithEnv(testEnv()))

	steps := []Command{
		AddNodeCmd{},
		UpdateNodeTextCmd{ID: "id1", Text: "second"},
		AddOptionCmd{ID: "root"},
		UpdateOptionCmd{ID: "root", Index: 0, Field: OptionText, Value: "go"},
		UpdateOptionCmd{ID: "root", Index: 0, Field: OptionNext, Value: "id1"},
		UpdateMetadataCmd{Title: "T", Author: "A", Description: "D"},
		SetFlagsCmd{ShowProgress: false, AllowBackNavigation: true},
	}
	for _, cmd := range steps {
		if err := ed.Apply(cmd); err != nil {
			t.Fatalf("Apply(%T) error: %v", cmd, err)
		}
	}

	d := ed.Draft()
	if d.SelectedNode != "id1" {
		t.Errorf("selected = %q, want id1 (new node)", d.SelectedNode)
	}
	if o := d.Nodes["root"].Options[0]; o.Text != "go" || o.Next != "id1" {
		t.Errorf("root option = %+v", o)
	}
	if d.Title != "T" || d.Author != "A" || d.Description != "D" {
		t.Errorf("metadata = %q %q %q", d.Title, d.Author, d.Description)
	}
	if d.ShowProgress || !d.AllowBackNavigation {
		t.Error("flags not applied")
	}
	if ed.CanUndo() {
		t.Error("CanUndo() = true after non-destructive edits")
	}
}

func TestEditorUndoDeleteNode(t *testing.T) {
	ed := NewEditor(NewDraft("root", epoch), WithEnv(testEnv()))
	_ = ed.Apply(AddNodeCmd{})
	_ = ed.Apply(AddOptionCmd{ID: "root"})
	_ = ed.Apply(UpdateOptionCmd{ID: "root", Index: 0, Field: OptionNext, Value: "id1"})
	before := ed.Draft()

	if err := ed.Apply(DeleteNodeCmd{ID: "id1"}); err != nil {
		t.Fatalf("DeleteNodeCmd error: %v", err)
	}
	d := ed.Draft()
	if d.Has("id1") || len(d.Nodes["root"].Options) != 0 {
		t.Fatalf("delete did not cascade: %+v", d)
	}
	if d.SelectedNode != "root" {
		t.Errorf("selection = %q, want fallback root", d.SelectedNode)
	}

	if !ed.Undo() {
		t.Fatal("Undo() = false, want true")
	}
	after := ed.Draft()
	if !after.Has("id1") || len(after.Nodes["root"].Options) != 1 || after.SelectedNode != before.SelectedNode {
		t.Errorf("Undo() = %+v, want %+v", after, before)
	}
	if ed.Undo() {
		t.Error("second Undo() = true, want one step only")
	}
}

func TestEditorUndoDeleteOption(t *testing.T) {
	ed := NewEditor(NewDraft("root", epoch), WithEnv(testEnv()))
	_ = ed.Apply(AddOptionCmd{ID: "root"})
	_ = ed.Apply(UpdateOptionCmd{ID: "root", Index: 0, Field: OptionText, Value: "keep me"})
	_ = ed.Apply(DeleteOptionCmd{ID: "root", Index: 0})
	if got := len(ed.Draft().Nodes["root"].Options); got != 0 {
		t.Fatalf("options = %d after delete", got)
	}
	ed.Undo()
	if got := ed.Draft().Nodes["root"].Options; len(got) != 1 || got[0].Text != "keep me" {
		t.Errorf("options after Undo() = %+v", got)
	}
}

func TestEditorRefusedDeleteKeepsState(t *testing.T) {
	ed := NewEditor(NewDraft("root", epoch), WithEnv(testEnv()))
	_ = ed.Apply(AddNodeCmd{})
	_ = ed.Apply(DeleteNodeCmd{ID: "id1"})
	_ = ed.Apply(AddNodeCmd{})

	err := ed.Apply(DeleteNodeCmd{ID: "root"})
	if !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Fatalf("DeleteNodeCmd(start) error = %v", err)
	}
	if got := len(ed.Draft().Nodes); got != 2 {
		t.Errorf("node count = %d, want 2", got)
	}
	// The undo slot still holds the snapshot from the earlier delete.
	if !ed.CanUndo() {
		t.Error("refused command cleared the undo slot")
	}
}

func TestEditorDraftIsCopy(t *testing.T) {
	ed := NewEditor(NewDraft("root", epoch), WithEnv(testEnv()))
	d := ed.Draft()
	d.Nodes["root"] = Node{Text: "tampered"}
	if ed.Draft().Nodes["root"].Text == "tampered" {
		t.Error("Draft() exposes internal state")
	}
}

func TestSelectCmd(t *testing.T) {
	ed := NewEditor(NewDraft("root", epoch), WithEnv(testEnv()))
	_ = ed.Apply(AddNodeCmd{})
	_ = ed.Apply(SelectCmd{ID: "root"})
	if got := ed.Draft().SelectedNode; got != "root" {
		t.Errorf("selected = %q, want root", got)
	}
	_ = ed.Apply(SelectCmd{ID: "ghost"})
	if got := ed.Draft().SelectedNode; got != "root" {
		t.Errorf("selected = %q after unknown id, want root", got)
	}
}

func TestEditorWithUndo(t *testing.T) {
	before := NewDraft("root", epoch)
	ed := NewEditor(NewDraft("other", epoch), WithUndo(before))
	if !ed.CanUndo() {
		t.Fatal("WithUndo() did not restore the undo slot")
	}
	snap, ok := ed.UndoSnapshot()
	if !ok || !snap.Has("root") {
		t.Errorf("UndoSnapshot() = %v, %v", snap.NodeIDs(), ok)
	}
	if !ed.Undo() || !ed.Draft().Has("root") {
		t.Error("Undo() did not restore the saved snapshot")
	}
	if _, ok := ed.UndoSnapshot(); ok {
		t.Error("UndoSnapshot() after Undo() should be empty")
	}
}
