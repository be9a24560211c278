package story

// Editor is a single authoring session. It applies commands to the current
// draft snapshot and keeps the pre-command snapshot of the last destructive
// command so it can be restored once.
//
// Editor is not safe for concurrent use.
type Editor struct {
	draft Draft
	undo  *Draft
	env   Env
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithEnv replaces the id generator and clock.
func WithEnv(env Env) EditorOption {
	return func(e *Editor) {
		if env.NewID != nil {
			e.env.NewID = env.NewID
		}
		if env.Now != nil {
			e.env.Now = env.Now
		}
	}
}

// WithUndo restores an undo snapshot saved from an earlier session.
func WithUndo(d Draft) EditorOption {
	return func(e *Editor) {
		snapshot := d.Clone()
		e.undo = &snapshot
	}
}

// NewEditor starts a session on a copy of d.
func NewEditor(d Draft, opts ...EditorOption) *Editor {
	e := &Editor{draft: d.Clone(), env: DefaultEnv()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draft returns a copy of the current snapshot.
func (e *Editor) Draft() Draft { return e.draft.Clone() }

// Apply runs cmd. A refused command returns its error and changes neither
// the draft nor the undo slot.
func (e *Editor) Apply(cmd Command) error {
	prev := e.draft
	next, err := cmd.Apply(prev, e.env)
	if err != nil {
		return err
	}
	if _, ok := cmd.(Destructive); ok {
		snapshot := prev.Clone()
		e.undo = &snapshot
	}
	e.draft = next
	return nil
}

// CanUndo reports whether a destructive edit can be reverted.
func (e *Editor) CanUndo() bool { return e.undo != nil }

// UndoSnapshot returns a copy of the draft Undo would restore.
func (e *Editor) UndoSnapshot() (Draft, bool) {
	if e.undo == nil {
		return Draft{}, false
	}
	return e.undo.Clone(), true
}

// Undo restores the snapshot taken before the last destructive command.
// It reports false when there is nothing to undo.
func (e *Editor) Undo() bool {
	if e.undo == nil {
		return false
	}
	e.draft = *e.undo
	e.undo = nil
	return true
}
