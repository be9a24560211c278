package story

import (
	"time"

	"github.com/matzehuels/storyweave/pkg/errors"
)

// ErrDeleteStart is the message returned when the start node is deleted.
const ErrDeleteStart = "You can't delete the start node."

// OptionField names the option attribute changed by [UpdateOption].
type OptionField string

const (
	OptionText OptionField = "text"
	OptionNext OptionField = "next"
)

// The functions below are the graph reducers. Each takes a snapshot and
// returns a new one; the argument is never modified. Unknown node ids and
// out-of-range option indexes leave the graph unchanged. Only DeleteNode can
// fail.

// AddNode adds an empty node with the given id. CreatedAt is now in
// milliseconds, bumped past the newest existing node so creation order stays
// strictly monotonic. The first node of an empty story becomes its start.
func AddNode(s Story, id string, now time.Time) Story {
	if id == "" || s.Has(id) {
		return s
	}
	next := s.Clone()
	createdAt := float64(now.UnixMilli())
	for _, n := range next.Nodes {
		if n.CreatedAt >= createdAt {
			createdAt = n.CreatedAt + 1
		}
	}
	next.Nodes[id] = Node{Text: "", Options: []Option{}, CreatedAt: createdAt}
	if !next.HasValidStart() {
		next.Start = id
	}
	return next
}

// UpdateNodeText replaces the text of node id.
func UpdateNodeText(s Story, id, text string) Story {
	return withNode(s, id, func(n *Node) { n.Text = text })
}

// AddOption appends an unlinked option with empty text to node id.
func AddOption(s Story, id string) Story {
	return withNode(s, id, func(n *Node) { n.Options = append(n.Options, Option{}) })
}

// UpdateOption sets the text or the target of option index of node id.
// Targets are not checked: a dangling reference is allowed while editing.
func UpdateOption(s Story, id string, index int, field OptionField, value string) Story {
	return withNode(s, id, func(n *Node) {
		if index < 0 || index >= len(n.Options) {
			return
		}
		switch field {
		case OptionText:
			n.Options[index].Text = value
		case OptionNext:
			n.Options[index].Next = value
			n.Options[index].NextLabel = ""
		}
	})
}

// DeleteOption removes option index of node id.
func DeleteOption(s Story, id string, index int) Story {
	return withNode(s, id, func(n *Node) {
		if index < 0 || index >= len(n.Options) {
			return
		}
		n.Options = append(n.Options[:index], n.Options[index+1:]...)
	})
}

// DeleteNode removes node id and every option elsewhere that points at it.
// Deleting the start node is refused with an INVARIANT_VIOLATION error and
// the original snapshot is returned.
func DeleteNode(s Story, id string) (Story, error) {
	if id == s.Start {
		return s, errors.New(errors.ErrCodeInvariantViolation, ErrDeleteStart)
	}
	if !s.Has(id) {
		return s, nil
	}
	next := s.Clone()
	delete(next.Nodes, id)
	for nid, n := range next.Nodes {
		kept := n.Options[:0]
		for _, o := range n.Options {
			if o.Next != id {
				kept = append(kept, o)
			}
		}
		n.Options = kept
		next.Nodes[nid] = n
	}
	return next, nil
}

// SetStart promotes node id to be the start node.
func SetStart(s Story, id string) Story {
	if !s.Has(id) || s.Start == id {
		return s
	}
	next := s.Clone()
	next.Start = id
	return next
}

func withNode(s Story, id string, fn func(*Node)) Story {
	if !s.Has(id) {
		return s
	}
	next := s.Clone()
	n := next.Nodes[id]
	fn(&n)
	next.Nodes[id] = n
	return next
}
