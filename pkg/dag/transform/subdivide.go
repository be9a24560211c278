package transform

import (
	"fmt"
	"maps"

	"github.com/matzehuels/storyweave/pkg/dag"
)

// Subdivide replaces every edge spanning more than one row with a chain of
// zero-size [dag.NodeKindDummy] nodes, one per intermediate row:
//
//	Before: intro (row 0) → ending (row 3)
//	After:  intro → intro_sub_1 → intro_sub_2 → ending
//
// Each dummy's MasterID is the source of the split edge. Every edge of the
// chain, and every dummy, carries a copy of the original edge's metadata so
// the full route can be reassembled after ordering.
//
// Dummy IDs have the form "master_sub_row"; on collision a numeric suffix
// is appended ("intro_sub_1__2").
//
// Subdivide returns the number of dummies inserted.
func Subdivide(g *dag.DAG) int {
	gen := newIDGen(g.Nodes())
	added := 0
	for _, e := range g.Edges() {
		src, srcOK := g.Node(e.From)
		dst, dstOK := g.Node(e.To)
		if !srcOK || !dstOK || dst.Row <= src.Row+1 {
			continue
		}

		g.RemoveEdge(e.From, e.To)
		prevID := src.ID
		for row := src.Row + 1; row < dst.Row; row++ {
			prevID = addDummy(g, gen, e, prevID, src.ID, row)
			added++
		}
		if err := g.AddEdge(dag.Edge{From: prevID, To: dst.ID, Meta: maps.Clone(e.Meta)}); err != nil {
			panic(err)
		}
	}
	return added
}

func addDummy(g *dag.DAG, gen *idGen, orig dag.Edge, from, master string, row int) string {
	id := gen.next(master, row)
	if err := g.AddNode(dag.Node{
		ID:       id,
		Row:      row,
		Kind:     dag.NodeKindDummy,
		MasterID: master,
		Meta:     maps.Clone(orig.Meta),
	}); err != nil {
		panic(err)
	}
	if err := g.AddEdge(dag.Edge{From: from, To: id, Meta: maps.Clone(orig.Meta)}); err != nil {
		panic(err)
	}
	return id
}

type idGen struct {
	used map[string]struct{}
}

func newIDGen(nodes []*dag.Node) *idGen {
	m := make(map[string]struct{}, len(nodes)*2)
	for _, n := range nodes {
		m[n.ID] = struct{}{}
	}
	return &idGen{used: m}
}

func (gen *idGen) next(base string, row int) string {
	prefix := fmt.Sprintf("%s_sub_%d", base, row)
	id := prefix
	for i := 1; ; i++ {
		if _, exists := gen.used[id]; !exists {
			gen.used[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s__%d", prefix, i)
	}
}
