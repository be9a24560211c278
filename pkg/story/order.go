package story

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// UnknownLabel is shown for ids that are not part of the story.
const UnknownLabel = "Unknown Node"

// OrderedIDs returns node ids sorted ascending by CreatedAt. This creation
// order is authoritative for display numbering everywhere; map order never
// matters. Equal timestamps are ordered by id so the result is total.
func OrderedIDs(nodes map[string]Node) []string {
	ids := slices.Collect(maps.Keys(nodes))
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(nodes[a].CreatedAt, nodes[b].CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// Label returns "Node k" where k is the 1-based position of id in ordered,
// or [UnknownLabel] when id is absent.
func Label(id string, ordered []string) string {
	if i := slices.Index(ordered, id); i >= 0 {
		return fmt.Sprintf("Node %d", i+1)
	}
	return UnknownLabel
}

// Labels computes the display label of every node in one pass.
func Labels(nodes map[string]Node) map[string]string {
	ordered := OrderedIDs(nodes)
	labels := make(map[string]string, len(ordered))
	for i, id := range ordered {
		labels[id] = fmt.Sprintf("Node %d", i+1)
	}
	return labels
}

// Rank returns the 1-based creation rank of id, or 0 if id is absent.
func Rank(nodes map[string]Node, id string) int {
	return slices.Index(OrderedIDs(nodes), id) + 1
}
