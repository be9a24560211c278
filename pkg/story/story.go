package story

import (
	"encoding/json"
	"maps"
	"slices"
)

// Option is a labeled choice leading from one node toward another.
//
// Next is the target node id. The empty string means "not linked yet" and is
// encoded as JSON null; a null or empty "next" in input decodes to "".
// NextLabel is an export decoration and never authoritative on import.
type Option struct {
	Text      string
	Next      string
	NextLabel string
}

type optionWire struct {
	Text      string  `json:"text"`
	Next      *string `json:"next"`
	NextLabel string  `json:"nextLabel,omitempty"`
}

// MarshalJSON encodes an unlinked option with "next": null.
func (o Option) MarshalJSON() ([]byte, error) {
	w := optionWire{Text: o.Text, NextLabel: o.NextLabel}
	if o.Next != "" {
		next := o.Next
		w.Next = &next
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes "next": null as an unlinked option.
func (o *Option) UnmarshalJSON(data []byte) error {
	var w optionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.Text = w.Text
	o.NextLabel = w.NextLabel
	o.Next = ""
	if w.Next != nil {
		o.Next = *w.Next
	}
	return nil
}

// Linked reports whether the option points at some node id.
// It does not check that the id resolves.
func (o Option) Linked() bool { return o.Next != "" }

// Node is a text passage. Its id is the key under which it is stored in
// [Story.Nodes].
type Node struct {
	Text      string   `json:"text"`
	Options   []Option `json:"options"`
	CreatedAt float64  `json:"createdAt"`
	Label     string   `json:"label,omitempty"`
}

// MarshalJSON always encodes options as an array, never null.
func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node
	p := plain(n)
	if p.Options == nil {
		p.Options = []Option{}
	}
	return json.Marshal(p)
}

// IsEnding reports whether the node has no options.
func (n Node) IsEnding() bool { return len(n.Options) == 0 }

// Clone returns a copy of the node with its own options slice.
func (n Node) Clone() Node {
	n.Options = slices.Clone(n.Options)
	if n.Options == nil {
		n.Options = []Option{}
	}
	return n
}

// Story is a branching narrative: a start node and an arena of nodes keyed
// by id. Nodes never point back at their parents; edges exist only as
// option targets.
//
// The zero value is an empty story. A Story is treated as an immutable
// snapshot by the edit functions in this package, which always work on a
// [Story.Clone].
type Story struct {
	Title               string          `json:"title,omitempty"`
	Author              string          `json:"author,omitempty"`
	Description         string          `json:"description,omitempty"`
	Start               string          `json:"start"`
	Nodes               map[string]Node `json:"nodes"`
	ShowProgress        bool            `json:"showProgress"`
	AllowBackNavigation bool            `json:"allowBackNavigation"`
}

// Clone returns a deep copy of s.
func (s Story) Clone() Story {
	c := s
	c.Nodes = make(map[string]Node, len(s.Nodes))
	for id, n := range s.Nodes {
		c.Nodes[id] = n.Clone()
	}
	return c
}

// Node returns the node with the given id.
func (s Story) Node(id string) (Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok
}

// Has reports whether id names a node of s.
func (s Story) Has(id string) bool {
	_, ok := s.Nodes[id]
	return ok
}

// HasValidStart reports whether Start references an existing node.
func (s Story) HasValidStart() bool {
	return s.Start != "" && s.Has(s.Start)
}

// EntryID returns Start when it resolves, otherwise the first node in
// creation-rank order. It returns "" for an empty story.
func (s Story) EntryID() string {
	if s.HasValidStart() {
		return s.Start
	}
	if ids := OrderedIDs(s.Nodes); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// NodeIDs returns all node ids in lexical order.
func (s Story) NodeIDs() []string {
	return slices.Sorted(maps.Keys(s.Nodes))
}

// UnlinkedOptions counts options whose target is empty or does not resolve.
func (s Story) UnlinkedOptions() int {
	count := 0
	for _, n := range s.Nodes {
		for _, o := range n.Options {
			if !s.Has(o.Next) {
				count++
			}
		}
	}
	return count
}
