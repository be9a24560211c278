// Package playback walks a reader through a story.
//
// A [Player] holds the story, the node being read and the trail of nodes
// read before it. History never includes the current node: after a single
// choice from A to B the history is [A]. GoBack pops the last entry back
// into the current position, and Restart clears the trail.
//
// The player never edits the story. Its state serializes as
// {"story", "currentNodeId", "history"} so readers can continue where they
// left off; [Resume] restores such a snapshot only if its story passes
// strict validation.
package playback

import (
	"encoding/json"
	"slices"

	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

// State is the persisted form of a Player.
type State struct {
	Story         story.Story `json:"story"`
	CurrentNodeID string      `json:"currentNodeId"`
	History       []string    `json:"history"`
}

// Player is the traversal state machine. It is not safe for concurrent use.
type Player struct {
	state State
}

// New returns a player positioned at the entry node of s. The player works
// on a copy with labels recomputed from creation order, so its snapshots
// pass strict validation whenever s is otherwise complete.
func New(s story.Story) *Player {
	p := &Player{state: State{Story: story.Import(s).Story}}
	p.Restart()
	return p
}

// State returns a copy of the current state.
func (p *Player) State() State {
	st := p.state
	st.History = slices.Clone(p.state.History)
	if st.History == nil {
		st.History = []string{}
	}
	return st
}

// Story returns the story being played.
func (p *Player) Story() story.Story { return p.state.Story }

// CurrentID returns the id of the node being read.
func (p *Player) CurrentID() string { return p.state.CurrentNodeID }

// Current returns the node being read.
func (p *Player) Current() (story.Node, bool) {
	return p.state.Story.Node(p.state.CurrentNodeID)
}

// History returns the ids read before the current node, oldest first.
func (p *Player) History() []string { return slices.Clone(p.state.History) }

// SelectOption follows option i of the current node. It reports whether the
// player moved; an out-of-range index or an option whose target does not
// resolve leaves the state unchanged.
func (p *Player) SelectOption(i int) bool {
	n, ok := p.Current()
	if !ok || i < 0 || i >= len(n.Options) {
		return false
	}
	next := n.Options[i].Next
	if !p.state.Story.Has(next) {
		return false
	}
	p.state.History = append(p.state.History, p.state.CurrentNodeID)
	p.state.CurrentNodeID = next
	return true
}

// CanGoBack reports whether GoBack would move: the story allows back
// navigation and there is a previous node.
func (p *Player) CanGoBack() bool {
	return p.state.Story.AllowBackNavigation && len(p.state.History) > 0
}

// GoBack returns to the previous node. It reports whether the player moved.
func (p *Player) GoBack() bool {
	if !p.CanGoBack() {
		return false
	}
	last := len(p.state.History) - 1
	p.state.CurrentNodeID = p.state.History[last]
	p.state.History = p.state.History[:last]
	return true
}

// Restart moves to the start node, or to the first node by creation rank
// when the start does not resolve, and clears the history.
func (p *Player) Restart() {
	p.state.CurrentNodeID = p.state.Story.EntryID()
	p.state.History = []string{}
}

// IsEnding reports whether the current node has no options. A player on an
// empty story is always at an ending.
func (p *Player) IsEnding() bool {
	n, ok := p.Current()
	return !ok || n.IsEnding()
}

// Progress returns the creation rank of the current node over the node
// count. It is only shown for stories with ShowProgress set.
func (p *Player) Progress() float64 {
	return story.Progress(p.state.Story.Nodes, p.state.CurrentNodeID)
}

// ShowProgress reports whether the story asks for a progress indicator.
func (p *Player) ShowProgress() bool { return p.state.Story.ShowProgress }

// DecodeState parses a persisted snapshot. The story must pass strict
// validation and the current node must exist; history entries that no
// longer name a node are dropped, as is a last entry repeating the current
// node.
func DecodeState(data []byte) (State, error) {
	var raw struct {
		Story         json.RawMessage `json:"story"`
		CurrentNodeID string          `json:"currentNodeId"`
		History       []string        `json:"history"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, errors.Wrap(errors.ErrCodeMalformedInput, err, "Saved progress is not valid JSON.")
	}
	s, err := validate.Decode(raw.Story, validate.Strict)
	if err != nil {
		return State{}, err
	}
	if !s.Has(raw.CurrentNodeID) {
		return State{}, errors.New(errors.ErrCodeDanglingReference, "Saved position %q is not part of the story.", raw.CurrentNodeID)
	}
	history := make([]string, 0, len(raw.History))
	for _, id := range raw.History {
		if s.Has(id) {
			history = append(history, id)
		}
	}
	if n := len(history); n > 0 && history[n-1] == raw.CurrentNodeID {
		history = history[:n-1]
	}
	return State{Story: s, CurrentNodeID: raw.CurrentNodeID, History: history}, nil
}

// Resume restores a player from a snapshot produced by marshaling
// [Player.State]. If the snapshot cannot be used the player starts fresh
// on fallback and the returned error says why the snapshot was dropped.
// The returned player is never nil.
func Resume(saved []byte, fallback story.Story) (*Player, error) {
	st, err := DecodeState(saved)
	if err != nil {
		return New(fallback), err
	}
	return FromState(st), nil
}

// FromState returns a player positioned as st. The state is used as is;
// run untrusted snapshots through [DecodeState] first.
func FromState(st State) *Player {
	st.History = slices.Clone(st.History)
	if st.History == nil {
		st.History = []string{}
	}
	return &Player{state: st}
}
