package ordering

import (
	"context"
	"slices"

	"github.com/matzehuels/storyweave/pkg/dag"
)

// DefaultPasses is the number of down-and-up sweeps Barycentric runs when
// Passes is zero.
const DefaultPasses = 4

// Barycentric is the classic layer-sweep heuristic. Each pass sweeps down,
// sorting every row by the mean position of its parents, then sweeps up
// using children, then swaps adjacent pairs while that lowers crossings.
// The ordering with the fewest crossings seen across all passes wins.
//
// Nodes without neighbors in the reference row keep their current index as
// sort key, and sorting is stable, so the result is deterministic for a
// given insertion order.
type Barycentric struct {
	Passes int
}

// OrderRows implements [Orderer].
func (b Barycentric) OrderRows(g *dag.DAG) map[int][]string {
	return b.OrderRowsContext(context.Background(), g)
}

// OrderRowsContext implements [ContextOrderer].
func (b Barycentric) OrderRowsContext(ctx context.Context, g *dag.DAG) map[int][]string {
	rows := g.RowIDs()
	orders := Initial(g)
	best := cloneOrders(orders)
	bestCrossings := dag.CountCrossings(g, orders)

	passes := b.Passes
	if passes <= 0 {
		passes = DefaultPasses
	}
	for pass := 0; pass < passes && bestCrossings > 0; pass++ {
		if ctx.Err() != nil {
			break
		}
		for i := 1; i < len(rows); i++ {
			sortByBarycenter(g, orders, rows[i], rows[i-1], true)
		}
		for i := len(rows) - 2; i >= 0; i-- {
			sortByBarycenter(g, orders, rows[i], rows[i+1], false)
		}
		for _, r := range rows {
			transpose(g, orders, r)
		}
		if c := dag.CountCrossings(g, orders); c < bestCrossings {
			best, bestCrossings = cloneOrders(orders), c
		}
	}
	return best
}

func sortByBarycenter(g *dag.DAG, orders map[int][]string, row, ref int, useParents bool) {
	refPos := dag.PosMap(orders[ref])
	ids := orders[row]

	type keyed struct {
		id  string
		key float64
	}
	items := make([]keyed, len(ids))
	for i, id := range ids {
		nbrs := g.Children(id)
		if useParents {
			nbrs = g.Parents(id)
		}
		sum, n := 0.0, 0
		for _, nb := range nbrs {
			if p, ok := refPos[nb]; ok {
				sum += float64(p)
				n++
			}
		}
		key := float64(i)
		if n > 0 {
			key = sum / float64(n)
		}
		items[i] = keyed{id, key}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	for i, it := range items {
		ids[i] = it.id
	}
}

// transpose swaps adjacent nodes of row while a swap strictly lowers the
// crossings toward both neighboring rows.
func transpose(g *dag.DAG, orders map[int][]string, row int) {
	ids := orders[row]
	if len(ids) < 2 {
		return
	}
	above := dag.PosMap(orders[row-1])
	below := dag.PosMap(orders[row+1])
	cost := func(l, r string) int {
		return dag.CountPairCrossingsWithPos(g, l, r, above, true) +
			dag.CountPairCrossingsWithPos(g, l, r, below, false)
	}

	for range len(ids) {
		improved := false
		for j := 0; j+1 < len(ids); j++ {
			if cost(ids[j+1], ids[j]) < cost(ids[j], ids[j+1]) {
				ids[j], ids[j+1] = ids[j+1], ids[j]
				improved = true
			}
		}
		if !improved {
			return
		}
	}
}
