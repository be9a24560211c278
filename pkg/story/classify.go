package story

import "unicode/utf8"

// Category is the visual class of a node. Exactly one applies per node.
type Category string

const (
	CategoryStart     Category = "start"
	CategoryEnding    Category = "ending"
	CategoryBranching Category = "branching"
	CategoryLongText  Category = "long-text"
	CategoryDefault   Category = "default"
)

// LongTextThreshold is the length above which a node is long-text. Text is
// measured in characters (runes), not bytes or UTF-16 code units.
const LongTextThreshold = 120

// Classify returns the category of node id, checked in precedence order:
// start, ending, branching, long-text, default. Long-text means more than
// LongTextThreshold runes of text. Unknown ids are default.
func Classify(s Story, id string) Category {
	n, ok := s.Nodes[id]
	switch {
	case !ok:
		return CategoryDefault
	case id == s.Start:
		return CategoryStart
	case len(n.Options) == 0:
		return CategoryEnding
	case len(n.Options) > 1:
		return CategoryBranching
	case utf8.RuneCountInString(n.Text) > LongTextThreshold:
		return CategoryLongText
	default:
		return CategoryDefault
	}
}
