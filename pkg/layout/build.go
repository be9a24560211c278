package layout

import (
	"fmt"

	"github.com/matzehuels/storyweave/pkg/story"
)

// ChoiceID returns the preferred ID of the choice pseudo-node for option
// index of node id. Build appends "'" to it while it names a passage or an
// earlier choice, so imported IDs such as "A-option-0" keep their own box.
func ChoiceID(id string, index int) string {
	return fmt.Sprintf("%s-option-%d", id, index)
}

type optionRef struct {
	source string
	index  int
}

// choiceIDs names the choice node of every option, walking passages in ids
// order. Unlinked options get a name too so that names do not shift when an
// option is linked later.
func choiceIDs(s story.Story, ids []string) map[optionRef]string {
	taken := make(map[string]bool, len(s.Nodes))
	for id := range s.Nodes {
		taken[id] = true
	}
	names := make(map[optionRef]string)
	for _, id := range ids {
		for i := range s.Nodes[id].Options {
			cid := ChoiceID(id, i)
			for taken[cid] {
				cid += "'"
			}
			taken[cid] = true
			names[optionRef{id, i}] = cid
		}
	}
	return names
}

// Build converts s into layout input. Passages come first, the start node
// leading and the rest in creation order; then, for each passage in the
// same order, one choice node per option whose target exists, with edges
// passage → choice → target. Options that are unlinked or dangling produce
// nothing.
func Build(s story.Story) ([]Node, []Edge) {
	ids := contentOrder(s)
	names := choiceIDs(s, ids)

	nodes := make([]Node, 0, len(ids)*2)
	for _, id := range ids {
		nodes = append(nodes, Node{ID: id, Kind: KindContent, Width: ContentWidth, Height: ContentHeight})
	}

	var edges []Edge
	for _, id := range ids {
		for i, opt := range s.Nodes[id].Options {
			if !s.Has(opt.Next) {
				continue
			}
			cid := names[optionRef{id, i}]
			nodes = append(nodes, Node{ID: cid, Kind: KindChoice, Width: ChoiceWidth, Height: ChoiceHeight})
			edges = append(edges, Edge{From: id, To: cid}, Edge{From: cid, To: opt.Next})
		}
	}
	return nodes, edges
}

func contentOrder(s story.Story) []string {
	ordered := story.OrderedIDs(s.Nodes)
	if !s.HasValidStart() {
		return ordered
	}
	ids := make([]string, 0, len(ordered))
	ids = append(ids, s.Start)
	for _, id := range ordered {
		if id != s.Start {
			ids = append(ids, id)
		}
	}
	return ids
}
