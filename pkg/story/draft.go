package story

import "time"

// Draft is the editor's persisted state: the story being authored plus the
// selected node. It is stored as one snapshot under the editor key; its JSON
// form is the story document with an extra "selectedNode" field.
type Draft struct {
	Story
	SelectedNode string `json:"selectedNode"`
}

// NewDraft returns a fresh draft holding a single empty start node.
func NewDraft(id string, now time.Time) Draft {
	s := AddNode(Story{ShowProgress: true}, id, now)
	return Draft{Story: s, SelectedNode: id}
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	return Draft{Story: d.Story.Clone(), SelectedNode: d.SelectedNode}
}

// Import prepares an externally supplied story for editing. Node labels are
// recomputed from creation order (incoming labels are never trusted) and a
// start that does not resolve falls back to the first node by creation rank.
// The selection is placed on the start node.
func Import(s Story) Draft {
	next := s.Clone()
	labels := Labels(next.Nodes)
	for id, n := range next.Nodes {
		n.Label = labels[id]
		next.Nodes[id] = n
	}
	next.Start = next.EntryID()
	return Draft{Story: next, SelectedNode: next.Start}
}
