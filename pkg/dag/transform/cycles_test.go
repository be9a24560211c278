package transform

import (
	"fmt"
	"testing"

	"github.com/matzehuels/storyweave/pkg/dag"
)

func build(ids []string, edges [][2]string) *dag.DAG {
	g := dag.New(nil)
	for _, id := range ids {
		_ = g.AddNode(dag.Node{ID: id})
	}
	for _, e := range edges {
		_ = g.AddEdge(dag.Edge{From: e[0], To: e[1]})
	}
	return g
}

func TestBreakCycles(t *testing.T) {
	tests := []struct {
		name      string
		ids       []string
		edges     [][2]string
		reversed  int
		edgeCount int
	}{
		{"no cycles", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}, 0, 2},
		{"two cycle", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}}, 1, 2},
		{"triangle", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, 1, 3},
		{"two components", []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "a"}, {"c", "d"}, {"d", "c"}}, 2, 4},
		{"self loop removed", []string{"a"}, [][2]string{{"a", "a"}}, 1, 0},
		{"diamond", []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}, 0, 4},
		{"empty", nil, nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(tt.ids, tt.edges)
			if got := BreakCycles(g); got != tt.reversed {
				t.Errorf("BreakCycles() = %d, want %d", got, tt.reversed)
			}
			if got := g.EdgeCount(); got != tt.edgeCount {
				t.Errorf("EdgeCount() = %d, want %d", got, tt.edgeCount)
			}
			if g.HasCycle() {
				t.Error("graph still has a cycle")
			}
		})
	}
}

func TestBreakCyclesMarksReversed(t *testing.T) {
	g := build([]string{"start", "hall", "back"}, [][2]string{
		{"start", "hall"}, {"hall", "back"}, {"back", "start"},
	})
	BreakCycles(g)

	var reversed []dag.Edge
	for _, e := range g.Edges() {
		if IsReversed(e) {
			reversed = append(reversed, e)
		}
	}
	if len(reversed) != 1 {
		t.Fatalf("reversed edges = %d, want 1", len(reversed))
	}
	if e := reversed[0]; e.From != "start" || e.To != "back" {
		t.Errorf("reversed edge = %s→%s, want start→back", e.From, e.To)
	}
}

// Search roots follow insertion order when no node is a source, so the
// first inserted node ends up above the rest of its cycle.
func TestBreakCyclesRootIsFirstInserted(t *testing.T) {
	g := build([]string{"b", "a"}, [][2]string{{"a", "b"}, {"b", "a"}})
	BreakCycles(g)
	if got := g.Children("a"); len(got) != 0 {
		t.Errorf("Children(a) = %v, want none", got)
	}
	if got := g.Children("b"); len(got) != 2 || got[0] != "a" || got[1] != "a" {
		t.Errorf("Children(b) = %v, want [a a]", got)
	}
}

func TestBreakCyclesDeepChain(t *testing.T) {
	const n = 200_000
	g := dag.New(nil)
	for i := range n {
		_ = g.AddNode(dag.Node{ID: fmt.Sprint(i)})
	}
	for i := 1; i < n; i++ {
		_ = g.AddEdge(dag.Edge{From: fmt.Sprint(i - 1), To: fmt.Sprint(i)})
	}
	_ = g.AddEdge(dag.Edge{From: fmt.Sprint(n - 1), To: "0"})

	if got := BreakCycles(g); got != 1 {
		t.Fatalf("BreakCycles() = %d, want 1", got)
	}
	if g.HasCycle() {
		t.Error("graph still has a cycle")
	}
}

func TestAssignLayers(t *testing.T) {
	g := build([]string{"a", "b", "c", "d"}, [][2]string{
		{"a", "b"}, {"b", "c"}, {"a", "c"}, {"c", "d"},
	})
	AssignLayers(g)
	want := map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}
	for id, row := range want {
		n, _ := g.Node(id)
		if n.Row != row {
			t.Errorf("%s row = %d, want %d", id, n.Row, row)
		}
	}
}

func TestNormalizeProducesValidLayering(t *testing.T) {
	g := build([]string{"a", "b", "c", "d"}, [][2]string{
		{"a", "b"}, {"b", "c"}, {"a", "d"}, {"c", "d"}, {"d", "a"},
	})
	Normalize(g)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() after Normalize = %v", err)
	}
}

func TestSubdivideCopiesMeta(t *testing.T) {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "a", Row: 0})
	_ = g.AddNode(dag.Node{ID: "z", Row: 3})
	_ = g.AddEdge(dag.Edge{From: "a", To: "z", Meta: dag.Metadata{"route": 7}})

	if got := Subdivide(g); got != 2 {
		t.Fatalf("Subdivide() = %d, want 2", got)
	}
	for _, e := range g.Edges() {
		if e.Meta["route"] != 7 {
			t.Errorf("edge %s→%s lost metadata", e.From, e.To)
		}
	}
	dummy, ok := g.Node("a_sub_1")
	if !ok || !dummy.IsDummy() || dummy.MasterID != "a" || dummy.Width != 0 {
		t.Errorf("a_sub_1 = %+v", dummy)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
