package layout

import (
	"math"

	"github.com/matzehuels/storyweave/pkg/dag"
)

// assignCoordinates returns the center of every node, dummies included.
//
// Along the primary axis each rank is as thick as its largest box and
// ranks are RankSep apart. Along the secondary axis every rank is first
// packed tightly, then repeatedly pulled toward the mean position of its
// neighbors in the adjacent rank (down sweeps use parents, up sweeps use
// children), keeping the rank's order and minimum spacing. A final down
// sweep lets each rank settle under the rank that feeds it.
func assignCoordinates(g *dag.DAG, orders map[int][]string, opts Options) map[string]Point {
	lr := opts.Direction == LeftRight
	primarySize := func(n *dag.Node) float64 {
		if lr {
			return n.Width
		}
		return n.Height
	}
	secondarySize := func(n *dag.Node) float64 {
		if lr {
			return n.Height
		}
		return n.Width
	}

	rows := g.RowIDs()

	rankCenter := make(map[int]float64, len(rows))
	offset := 0.0
	for i, r := range rows {
		thick := 0.0
		for _, id := range orders[r] {
			n, _ := g.Node(id)
			thick = math.Max(thick, primarySize(n))
		}
		if i > 0 {
			offset += opts.RankSep
		}
		rankCenter[r] = offset + thick/2
		offset += thick
	}

	// minOffset[r][i] is the smallest distance from the first center of
	// rank r to the i-th one.
	minOffset := make(map[int][]float64, len(rows))
	sec := make(map[string]float64, g.NodeCount())
	for _, r := range rows {
		ids := orders[r]
		offs := make([]float64, len(ids))
		for i := 1; i < len(ids); i++ {
			a, _ := g.Node(ids[i-1])
			b, _ := g.Node(ids[i])
			sep := opts.NodeSep
			if a.IsDummy() || b.IsDummy() {
				sep /= 2
			}
			offs[i] = offs[i-1] + (secondarySize(a)+secondarySize(b))/2 + sep
		}
		minOffset[r] = offs
		for i, id := range ids {
			sec[id] = offs[i]
		}
	}

	align := func(r int, useParents bool) {
		ids := orders[r]
		offs := minOffset[r]
		v := make([]float64, len(ids))
		for i, id := range ids {
			nbrs := g.Children(id)
			if useParents {
				nbrs = g.Parents(id)
			}
			desired := sec[id]
			if len(nbrs) > 0 {
				sum := 0.0
				for _, nb := range nbrs {
					sum += sec[nb]
				}
				desired = sum / float64(len(nbrs))
			}
			v[i] = desired - offs[i]
		}
		for i, u := range isotonic(v) {
			sec[ids[i]] = offs[i] + u
		}
	}

	down := func() {
		for i := 1; i < len(rows); i++ {
			align(rows[i], true)
		}
	}
	up := func() {
		for i := len(rows) - 2; i >= 0; i-- {
			align(rows[i], false)
		}
	}
	for range opts.Sweeps {
		down()
		up()
	}
	down()

	low := math.Inf(1)
	for _, n := range g.Nodes() {
		low = math.Min(low, sec[n.ID]-secondarySize(n)/2)
	}
	if math.IsInf(low, 1) {
		low = 0
	}

	centers := make(map[string]Point, g.NodeCount())
	for _, n := range g.Nodes() {
		s, p := sec[n.ID]-low, rankCenter[n.Row]
		if lr {
			centers[n.ID] = Point{X: p, Y: s}
		} else {
			centers[n.ID] = Point{X: s, Y: p}
		}
	}
	return centers
}

// isotonic returns the non-decreasing sequence closest to v in least
// squares (pool adjacent violators).
func isotonic(v []float64) []float64 {
	type block struct {
		sum float64
		n   int
	}
	blocks := make([]block, 0, len(v))
	for _, x := range v {
		blocks = append(blocks, block{x, 1})
		for len(blocks) > 1 {
			a, b := blocks[len(blocks)-2], blocks[len(blocks)-1]
			if a.sum/float64(a.n) <= b.sum/float64(b.n) {
				break
			}
			blocks[len(blocks)-2] = block{a.sum + b.sum, a.n + b.n}
			blocks = blocks[:len(blocks)-1]
		}
	}
	out := make([]float64, 0, len(v))
	for _, b := range blocks {
		mean := b.sum / float64(b.n)
		for range b.n {
			out = append(out, mean)
		}
	}
	return out
}
