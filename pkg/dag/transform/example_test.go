package transform_test

import (
	"fmt"

	"github.com/matzehuels/storyweave/pkg/dag"
	"github.com/matzehuels/storyweave/pkg/dag/transform"
)

func ExampleNormalize() {
	// intro → cave → lake, with lake looping back to intro and a shortcut
	// from intro straight to lake.
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "intro"})
	_ = g.AddNode(dag.Node{ID: "cave"})
	_ = g.AddNode(dag.Node{ID: "lake"})
	_ = g.AddEdge(dag.Edge{From: "intro", To: "cave"})
	_ = g.AddEdge(dag.Edge{From: "cave", To: "lake"})
	_ = g.AddEdge(dag.Edge{From: "intro", To: "lake"})
	_ = g.AddEdge(dag.Edge{From: "lake", To: "intro"})

	transform.Normalize(g)

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Rows:", g.RowCount())
	fmt.Println("Valid:", g.Validate() == nil)
	// Output:
	// Nodes: 5
	// Rows: 3
	// Valid: true
}

func ExampleAssignLayers() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "intro"})
	_ = g.AddNode(dag.Node{ID: "hall"})
	_ = g.AddNode(dag.Node{ID: "end"})
	_ = g.AddEdge(dag.Edge{From: "intro", To: "hall"})
	_ = g.AddEdge(dag.Edge{From: "hall", To: "end"})

	transform.AssignLayers(g)

	for _, n := range g.Nodes() {
		fmt.Println(n.ID, n.Row)
	}
	// Output:
	// intro 0
	// hall 1
	// end 2
}

func ExampleSubdivide() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "intro", Row: 0})
	_ = g.AddNode(dag.Node{ID: "ending", Row: 3})
	_ = g.AddEdge(dag.Edge{From: "intro", To: "ending"})

	transform.Subdivide(g)

	fmt.Println(dag.NodeIDs(g.Nodes()))
	// Output:
	// [intro ending intro_sub_1 intro_sub_2]
}

func ExampleBreakCycles() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "A"})
	_ = g.AddNode(dag.Node{ID: "B"})
	_ = g.AddNode(dag.Node{ID: "C"})
	_ = g.AddEdge(dag.Edge{From: "A", To: "B"})
	_ = g.AddEdge(dag.Edge{From: "B", To: "C"})
	_ = g.AddEdge(dag.Edge{From: "C", To: "A"})

	fmt.Println("Reversed:", transform.BreakCycles(g))
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Acyclic:", !g.HasCycle())
	// Output:
	// Reversed: 1
	// Edges: 3
	// Acyclic: true
}
