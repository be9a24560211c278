// Package transform prepares a [dag.DAG] for layered drawing.
//
// # Overview
//
// Story graphs arrive with cycles (a passage may loop back), without row
// assignments, and with edges of any length. The transformations here turn
// such a graph into the canonical form the ordering and coordinate steps
// need:
//
//   - the graph is acyclic
//   - every node has a row and every edge points one row down
//
// # Cycle Breaking
//
// [BreakCycles] reverses the back edges of an iterative depth-first search.
// Reversing instead of deleting keeps every option visible in the diagram;
// the edge is marked with [MetaReversed] so it can be drawn pointing back.
//
// # Layer Assignment
//
// [AssignLayers] places each node at the length of the longest path from a
// source (Kahn's algorithm), so parents are always above their children.
//
// # Edge Subdivision
//
// [Subdivide] splits long edges into chains of zero-size dummy nodes:
//
//	Before: intro (row 0) → ending (row 3)
//	After:  intro → intro_sub_1 → intro_sub_2 → ending
//
// # Usage
//
// Apply the steps in this order:
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
//	transform.Subdivide(g)
//
// or call [Normalize], which does exactly that.
package transform

import "github.com/matzehuels/storyweave/pkg/dag"

// Normalize breaks cycles, assigns layers and subdivides long edges, in
// place, and returns g.
func Normalize(g *dag.DAG) *dag.DAG {
	BreakCycles(g)
	AssignLayers(g)
	Subdivide(g)
	return g
}
