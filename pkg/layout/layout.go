// Package layout computes the diagram of a story: where every passage and
// every choice box goes.
//
// # Pipeline
//
// [Build] turns a story into layout nodes and edges. Each option whose
// target resolves becomes a choice pseudo-node between its passage and the
// target, so the option text gets a box of its own instead of floating on
// an edge.
//
// [Compute] is a pure layered (Sugiyama) layout over those nodes. Every
// call builds a fresh graph; nothing is carried between calls, so the same
// input always yields bit-identical positions:
//
//  1. reverse back edges (transform.BreakCycles)
//  2. longest-path layering (transform.AssignLayers)
//  3. split long edges with zero-size dummies (transform.Subdivide)
//  4. reduce crossings with barycentric sweeps (ordering.Barycentric)
//  5. assign coordinates: ranks are stacked along the primary axis, and on
//     the secondary axis each rank is aligned with its neighbors by an
//     order-preserving least-squares fit
//
// [Merge] applies user [Overrides] on top of the automatic positions as a
// last, separate step. [Diagram] runs the whole pipeline and adds labels,
// categories, edge routes and bounds for rendering.
package layout

import (
	"fmt"
	"strings"

	"github.com/matzehuels/storyweave/pkg/dag"
)

// Direction is the flow of ranks.
type Direction string

const (
	// TopBottom stacks ranks vertically; edges point down.
	TopBottom Direction = "TB"
	// LeftRight stacks ranks horizontally; edges point right.
	LeftRight Direction = "LR"
)

// ParseDirection accepts "TB" or "LR" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(s)) {
	case TopBottom, "":
		return TopBottom, nil
	case LeftRight:
		return LeftRight, nil
	}
	return "", fmt.Errorf("unknown layout direction %q (want TB or LR)", s)
}

// Node box sizes.
const (
	ContentWidth  = 220.0
	ContentHeight = 80.0
	ChoiceWidth   = 160.0
	ChoiceHeight  = 50.0
)

// Layout defaults.
const (
	DefaultNodeSep = 50.0
	DefaultRankSep = 50.0
	DefaultSweeps  = 4
)

// Kind is the kind of a layout node.
type Kind = dag.NodeKind

const (
	KindContent = dag.NodeKindContent
	KindChoice  = dag.NodeKindChoice
)

// Node is a box to place.
type Node struct {
	ID     string
	Kind   Kind
	Width  float64
	Height float64
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From string
	To   string
}

// Point is a position in diagram units. For node positions it is the
// top-left corner of the box.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positions maps node IDs to top-left corners.
type Positions map[string]Point

// Options configures [Compute].
type Options struct {
	Direction Direction
	// NodeSep is the gap between neighboring boxes of one rank.
	NodeSep float64
	// RankSep is the gap between consecutive ranks.
	RankSep float64
	// Sweeps is the number of crossing-reduction and alignment passes.
	Sweeps int
}

// DefaultOptions returns top-to-bottom layout with default spacing.
func DefaultOptions() Options {
	return Options{
		Direction: TopBottom,
		NodeSep:   DefaultNodeSep,
		RankSep:   DefaultRankSep,
		Sweeps:    DefaultSweeps,
	}
}

func (o Options) withDefaults() Options {
	if o.Direction == "" {
		o.Direction = TopBottom
	}
	if o.NodeSep <= 0 {
		o.NodeSep = DefaultNodeSep
	}
	if o.RankSep <= 0 {
		o.RankSep = DefaultRankSep
	}
	if o.Sweeps <= 0 {
		o.Sweeps = DefaultSweeps
	}
	return o
}

// Key returns a stable string form of the options for cache keys.
func (o Options) Key() string {
	o = o.withDefaults()
	return fmt.Sprintf("%s/%g/%g/%d", o.Direction, o.NodeSep, o.RankSep, o.Sweeps)
}
