package story

import (
	"fmt"
	"testing"
	"time"

	"github.com/matzehuels/storyweave/pkg/errors"
)

var epoch = time.UnixMilli(1_700_000_000_000)

func TestAddNode(t *testing.T) {
	s := AddNode(Story{}, "first", epoch)
	if s.Start != "first" {
		t.Errorf("AddNode() on empty story start = %q, want first", s.Start)
	}
	if got := s.Nodes["first"].CreatedAt; got != float64(epoch.UnixMilli()) {
		t.Errorf("CreatedAt = %v, want %v", got, epoch.UnixMilli())
	}

	// Same clock reading still yields a strictly later timestamp.
	s2 := AddNode(s, "second", epoch)
	if s2.Nodes["second"].CreatedAt <= s2.Nodes["first"].CreatedAt {
		t.Errorf("CreatedAt not monotonic: %v <= %v", s2.Nodes["second"].CreatedAt, s2.Nodes["first"].CreatedAt)
	}
	if s2.Start != "first" {
		t.Errorf("start moved to %q", s2.Start)
	}
	if s.Has("second") {
		t.Error("AddNode() modified its argument")
	}
	if got := Label("second", OrderedIDs(s2.Nodes)); got != "Node 2" {
		t.Errorf("Label(second) = %q, want Node 2", got)
	}

	if again := AddNode(s2, "first", epoch.Add(time.Hour)); again.Nodes["first"].CreatedAt != s2.Nodes["first"].CreatedAt {
		t.Error("AddNode() with an existing id replaced the node")
	}
}

func TestOptionEdits(t *testing.T) {
	s := sample()
	s = AddOption(s, "c")
	if got := len(s.Nodes["c"].Options); got != 1 {
		t.Fatalf("AddOption() options = %d, want 1", got)
	}
	if o := s.Nodes["c"].Options[0]; o.Text != "" || o.Linked() {
		t.Errorf("AddOption() = %+v, want empty unlinked option", o)
	}

	s = UpdateOption(s, "c", 0, OptionText, "back")
	s = UpdateOption(s, "c", 0, OptionNext, "a")
	if o := s.Nodes["c"].Options[0]; o.Text != "back" || o.Next != "a" {
		t.Errorf("UpdateOption() = %+v", o)
	}

	// Out-of-range and unknown targets are ignored.
	same := UpdateOption(s, "c", 5, OptionText, "x")
	if same.Nodes["c"].Options[0].Text != "back" {
		t.Error("UpdateOption() out of range changed the graph")
	}
	same = DeleteOption(s, "nope", 0)
	if len(same.Nodes) != len(s.Nodes) {
		t.Error("DeleteOption() on unknown node changed the graph")
	}

	s = DeleteOption(s, "a", 0)
	opts := s.Nodes["a"].Options
	if len(opts) != 1 || opts[0].Text != "right" {
		t.Errorf("DeleteOption() left %+v, want only right", opts)
	}
}

func TestUpdateNodeText(t *testing.T) {
	s := sample()
	next := UpdateNodeText(s, "b", "Dark tunnel\n\nIt is cold.")
	if next.Nodes["b"].Text != "Dark tunnel\n\nIt is cold." {
		t.Errorf("UpdateNodeText() = %q", next.Nodes["b"].Text)
	}
	if s.Nodes["b"].Text != "Tunnel" {
		t.Error("UpdateNodeText() modified its argument")
	}
}

func TestDeleteNodeRefusesStart(t *testing.T) {
	s := sample()
	next, err := DeleteNode(s, s.Start)
	if !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Fatalf("DeleteNode(start) error = %v, want INVARIANT_VIOLATION", err)
	}
	if errors.UserMessage(err) != ErrDeleteStart {
		t.Errorf("message = %q", errors.UserMessage(err))
	}
	if len(next.Nodes) != len(s.Nodes) {
		t.Errorf("node count = %d, want %d", len(next.Nodes), len(s.Nodes))
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	s := sample()
	next, err := DeleteNode(s, "c")
	if err != nil {
		t.Fatalf("DeleteNode() error: %v", err)
	}
	if next.Has("c") {
		t.Fatal("node c still present")
	}
	for id, n := range next.Nodes {
		for _, o := range n.Options {
			if o.Next == "c" {
				t.Errorf("node %s still has an option to c", id)
			}
		}
	}
	if got := len(next.Nodes["a"].Options); got != 1 {
		t.Errorf("a options = %d, want 1", got)
	}
	if got := len(next.Nodes["b"].Options); got != 0 {
		t.Errorf("b options = %d, want 0", got)
	}
	if len(s.Nodes["a"].Options) != 2 {
		t.Error("DeleteNode() modified its argument")
	}
}

// Cascade holds for every node of generated stories, including cyclic ones.
func TestDeleteNodeCascadeProperty(t *testing.T) {
	for size := 2; size <= 8; size++ {
		s := ringStory(size)
		for i := 1; i < size; i++ {
			victim := fmt.Sprintf("n%d", i)
			next, err := DeleteNode(s, victim)
			if err != nil {
				t.Fatalf("DeleteNode(%s) error: %v", victim, err)
			}
			if next.Has(victim) || len(next.Nodes) != size-1 {
				t.Fatalf("size %d: %s not removed", size, victim)
			}
			for _, n := range next.Nodes {
				for _, o := range n.Options {
					if o.Next == victim {
						t.Fatalf("size %d: option still references %s", size, victim)
					}
				}
			}
		}
		if _, err := DeleteNode(s, s.Start); err == nil {
			t.Fatalf("size %d: start deletion accepted", size)
		}
	}
}

// ringStory links every node to the next one and to the start.
func ringStory(size int) Story {
	s := Story{Start: "n0", Nodes: map[string]Node{}}
	for i := 0; i < size; i++ {
		s.Nodes[fmt.Sprintf("n%d", i)] = Node{
			Text: fmt.Sprintf("passage %d", i),
			Options: []Option{
				{Text: "on", Next: fmt.Sprintf("n%d", (i+1)%size)},
				{Text: "restart", Next: "n0"},
			},
			CreatedAt: float64(i),
		}
	}
	return s
}

func TestSetStart(t *testing.T) {
	s := SetStart(sample(), "b")
	if s.Start != "b" {
		t.Fatalf("SetStart() start = %q, want b", s.Start)
	}
	// The old start can be deleted once another node is promoted.
	next, err := DeleteNode(s, "a")
	if err != nil {
		t.Fatalf("DeleteNode(old start) error: %v", err)
	}
	if next.Has("a") {
		t.Error("old start still present")
	}
	if SetStart(s, "missing").Start != "b" {
		t.Error("SetStart() accepted an unknown id")
	}
}
