// Package dag provides the layered graph that the diagram layout is computed
// on.
//
// # Overview
//
// A story diagram is drawn Sugiyama-style: nodes are assigned to rows
// (ranks), long edges are split so that every edge joins consecutive rows,
// rows are reordered to reduce crossings, and coordinates are derived from
// the result. This package holds the graph structure for those steps; the
// steps themselves live in the transform and ordering subpackages.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	_ = g.AddNode(dag.Node{ID: "intro", Width: 220, Height: 80})
//	_ = g.AddNode(dag.Node{ID: "intro-option-0", Kind: dag.NodeKindChoice, Width: 160, Height: 50})
//	_ = g.AddEdge(dag.Edge{From: "intro", To: "intro-option-0"})
//
// # Node Kinds
//
//   - [NodeKindContent]: a story passage
//   - [NodeKindChoice]: the box drawn for one option
//   - [NodeKindDummy]: a zero-size bend point on a split edge
//
// # Determinism
//
// Nodes, sources, sinks and row contents are always returned in insertion
// order. Callers that insert in a stable order get identical layouts on
// every run, which the diagram cache relies on.
//
// # Crossings
//
// [CountCrossings] and [CountLayerCrossings] count edge crossings between
// ordered rows in O(E log V) using a Fenwick tree.
// [CountPairCrossingsWithPos] supports adjacent-swap refinement.
package dag
