package layout

import (
	"context"
	"slices"

	"github.com/matzehuels/storyweave/pkg/dag"
	"github.com/matzehuels/storyweave/pkg/dag/ordering"
	"github.com/matzehuels/storyweave/pkg/dag/transform"
)

// metaEdge tags every internal edge with the index of the input edge it
// came from, so routes survive reversal and subdivision.
const metaEdge = "edge"

// Route is the drawn path of one input edge: the bend points between its
// endpoints, in the edge's own direction. Reversed is set for edges that
// point against the rank flow because they close a cycle.
type Route struct {
	From     string
	To       string
	Points   []Point
	Reversed bool
}

type solution struct {
	positions Positions
	routes    map[int]Route
}

// Compute lays out nodes and edges and returns the top-left corner of every
// node. It is a pure function: each call builds its own graph and identical
// arguments always give identical results.
//
// Nodes with a duplicate ID and edges with an unknown endpoint are ignored.
func Compute(nodes []Node, edges []Edge, opts Options) Positions {
	sol, _ := compute(context.Background(), nodes, edges, opts)
	return sol.positions
}

// ComputeContext is Compute for large graphs: it stops between steps and
// during crossing reduction once ctx is done, returning ctx.Err().
func ComputeContext(ctx context.Context, nodes []Node, edges []Edge, opts Options) (Positions, error) {
	sol, err := compute(ctx, nodes, edges, opts)
	if err != nil {
		return nil, err
	}
	return sol.positions, nil
}

func compute(ctx context.Context, nodes []Node, edges []Edge, opts Options) (solution, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return solution{}, err
	}

	g := dag.New(nil)
	for _, n := range nodes {
		_ = g.AddNode(dag.Node{ID: n.ID, Kind: n.Kind, Width: n.Width, Height: n.Height})
	}
	for i, e := range edges {
		_ = g.AddEdge(dag.Edge{From: e.From, To: e.To, Meta: dag.Metadata{metaEdge: i}})
	}

	transform.BreakCycles(g)
	transform.AssignLayers(g)
	transform.Subdivide(g)
	if err := ctx.Err(); err != nil {
		return solution{}, err
	}

	orders := ordering.Barycentric{Passes: opts.Sweeps}.OrderRowsContext(ctx, g)
	if err := ctx.Err(); err != nil {
		return solution{}, err
	}
	centers := assignCoordinates(g, orders, opts)

	positions := make(Positions, len(nodes))
	for _, n := range g.Nodes() {
		if n.IsDummy() {
			continue
		}
		c := centers[n.ID]
		positions[n.ID] = Point{X: c.X - n.Width/2, Y: c.Y - n.Height/2}
	}
	return solution{positions: positions, routes: traceRoutes(g, edges, centers)}, nil
}

// traceRoutes reassembles each input edge from its internal pieces.
func traceRoutes(g *dag.DAG, edges []Edge, centers map[string]Point) map[int]Route {
	type piece struct {
		from, to string
		reversed bool
	}
	pieces := make(map[int][]piece)
	for _, e := range g.Edges() {
		idx, ok := e.Meta[metaEdge].(int)
		if !ok {
			continue
		}
		pieces[idx] = append(pieces[idx], piece{e.From, e.To, transform.IsReversed(e)})
	}

	routes := make(map[int]Route, len(pieces))
	for idx, ps := range pieces {
		orig := edges[idx]
		reversed := ps[0].reversed
		next := make(map[string]string, len(ps))
		for _, p := range ps {
			next[p.from] = p.to
		}

		cur := orig.From
		if reversed {
			cur = orig.To
		}
		var points []Point
		for range ps {
			to, ok := next[cur]
			if !ok {
				break
			}
			if n, _ := g.Node(to); n.IsDummy() {
				points = append(points, centers[to])
			}
			cur = to
		}
		if reversed {
			slices.Reverse(points)
		}
		routes[idx] = Route{From: orig.From, To: orig.To, Points: points, Reversed: reversed}
	}
	return routes
}
