package transform

import (
	"maps"

	"github.com/matzehuels/storyweave/pkg/dag"
)

// MetaReversed is set to true on edges that BreakCycles turned around.
const MetaReversed = "reversed"

// BreakCycles makes g acyclic by reversing every back edge found by a
// depth-first search and returns how many edges changed. Self-loops cannot
// be reversed and are removed; they are counted too.
//
// The search starts from the sources in insertion order and then from any
// node not reached yet, so the first inserted node of a strongly connected
// component acts as its root. Reversed edges keep their metadata and gain
// [MetaReversed]; routing code uses it to draw them in their true direction.
//
// The traversal keeps an explicit stack and never recurses, so long option
// chains cannot overflow the goroutine stack.
func BreakCycles(g *dag.DAG) int {
	const (
		white = iota
		gray
		black
	)

	type frame struct {
		id   string
		next int
	}

	color := make(map[string]int, g.NodeCount())
	var backEdges [][2]string

	visit := func(root string) {
		stack := []frame{{id: root}}
		color[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.Children(top.id)
			if top.next == len(children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++
			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{id: child})
			case gray:
				backEdges = append(backEdges, [2]string{top.id, child})
			}
		}
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}
	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}

	for _, be := range backEdges {
		e, ok := g.RemoveEdge(be[0], be[1])
		if !ok || e.From == e.To {
			continue
		}
		meta := maps.Clone(e.Meta)
		meta[MetaReversed] = true
		_ = g.AddEdge(dag.Edge{From: e.To, To: e.From, Meta: meta})
	}
	return len(backEdges)
}

// IsReversed reports whether BreakCycles turned e around.
func IsReversed(e dag.Edge) bool {
	r, _ := e.Meta[MetaReversed].(bool)
	return r
}
