// Package ordering decides the left-to-right order of nodes within each row
// of a layered graph so that edges cross as little as possible.
//
// Input graphs must be normalized (acyclic, every edge spanning exactly one
// row); see the transform package.
package ordering

import (
	"context"

	"github.com/matzehuels/storyweave/pkg/dag"
)

// Orderer is a row ordering algorithm. The result maps each row index to
// node IDs in left-to-right order.
type Orderer interface {
	OrderRows(g *dag.DAG) map[int][]string
}

// ContextOrderer is an Orderer that stops early, returning its best result
// so far, when ctx is done.
type ContextOrderer interface {
	Orderer
	OrderRowsContext(ctx context.Context, g *dag.DAG) map[int][]string
}

// Initial returns the rows in insertion order. It is the starting point of
// every heuristic here and a valid Orderer result on its own.
func Initial(g *dag.DAG) map[int][]string {
	orders := make(map[int][]string, g.RowCount())
	for _, r := range g.RowIDs() {
		orders[r] = dag.NodeIDs(g.NodesInRow(r))
	}
	return orders
}

func cloneOrders(orders map[int][]string) map[int][]string {
	c := make(map[int][]string, len(orders))
	for r, ids := range orders {
		c[r] = append([]string(nil), ids...)
	}
	return c
}
