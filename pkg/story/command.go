package story

import (
	"time"

	"github.com/google/uuid"
)

// Env supplies the impure inputs of editing: fresh ids and the clock.
type Env struct {
	NewID func() string
	Now   func() time.Time
}

// DefaultEnv generates UUID node ids and uses the wall clock.
func DefaultEnv() Env {
	return Env{NewID: uuid.NewString, Now: time.Now}
}

// Command is one editing action. Apply returns the next draft and never
// modifies d; on error the returned draft must be ignored.
type Command interface {
	Apply(d Draft, env Env) (Draft, error)
}

// Destructive marks commands whose effect can be undone for one step.
type Destructive interface {
	Command
	destructive()
}

// AddNodeCmd creates a node and selects it.
type AddNodeCmd struct{}

func (AddNodeCmd) Apply(d Draft, env Env) (Draft, error) {
	id := env.NewID()
	d.Story = AddNode(d.Story, id, env.Now())
	if d.Has(id) {
		d.SelectedNode = id
	}
	return d, nil
}

// UpdateNodeTextCmd replaces the text of a node.
type UpdateNodeTextCmd struct {
	ID   string
	Text string
}

func (c UpdateNodeTextCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = UpdateNodeText(d.Story, c.ID, c.Text)
	return d, nil
}

// AddOptionCmd appends an unlinked option.
type AddOptionCmd struct {
	ID string
}

func (c AddOptionCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = AddOption(d.Story, c.ID)
	return d, nil
}

// UpdateOptionCmd changes one option field.
type UpdateOptionCmd struct {
	ID    string
	Index int
	Field OptionField
	Value string
}

func (c UpdateOptionCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = UpdateOption(d.Story, c.ID, c.Index, c.Field, c.Value)
	return d, nil
}

// DeleteOptionCmd removes one option.
type DeleteOptionCmd struct {
	ID    string
	Index int
}

func (c DeleteOptionCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = DeleteOption(d.Story, c.ID, c.Index)
	return d, nil
}

func (DeleteOptionCmd) destructive() {}

// DeleteNodeCmd removes a node with cascade. If the node was selected the
// selection moves to the first remaining node by creation rank.
type DeleteNodeCmd struct {
	ID string
}

func (c DeleteNodeCmd) Apply(d Draft, _ Env) (Draft, error) {
	s, err := DeleteNode(d.Story, c.ID)
	if err != nil {
		return d, err
	}
	d.Story = s
	if d.SelectedNode == c.ID {
		d.SelectedNode = ""
		if ids := OrderedIDs(s.Nodes); len(ids) > 0 {
			d.SelectedNode = ids[0]
		}
	}
	return d, nil
}

func (DeleteNodeCmd) destructive() {}

// SetStartCmd promotes a node to start.
type SetStartCmd struct {
	ID string
}

func (c SetStartCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = SetStart(d.Story, c.ID)
	return d, nil
}

// SelectCmd changes the selected node. Unknown ids are ignored.
type SelectCmd struct {
	ID string
}

func (c SelectCmd) Apply(d Draft, _ Env) (Draft, error) {
	if d.Has(c.ID) {
		d.SelectedNode = c.ID
	}
	return d, nil
}

// UpdateMetadataCmd replaces the title, author and description.
type UpdateMetadataCmd struct {
	Title       string
	Author      string
	Description string
}

func (c UpdateMetadataCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = d.Story.Clone()
	d.Title, d.Author, d.Description = c.Title, c.Author, c.Description
	return d, nil
}

// SetFlagsCmd sets the reader flags.
type SetFlagsCmd struct {
	ShowProgress        bool
	AllowBackNavigation bool
}

func (c SetFlagsCmd) Apply(d Draft, _ Env) (Draft, error) {
	d.Story = d.Story.Clone()
	d.ShowProgress = c.ShowProgress
	d.AllowBackNavigation = c.AllowBackNavigation
	return d, nil
}
