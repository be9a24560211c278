package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/playback"
	"github.com/matzehuels/storyweave/pkg/story"
)

// DecodeDraft parses a saved editor snapshot. Only a nodes object is
// required: a missing start falls back to the first node by creation rank,
// a missing selection to the start, and a missing showProgress to true.
func DecodeDraft(data []byte) (story.Draft, error) {
	var raw struct {
		story.Draft
		ShowProgress *bool `json:"showProgress"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return story.Draft{}, errors.Wrap(errors.ErrCodeMalformedInput, err, "Saved draft is not valid JSON.")
	}
	d := raw.Draft
	if len(d.Nodes) == 0 {
		return story.Draft{}, errors.New(errors.ErrCodeSchemaViolation, "Saved draft has no nodes.")
	}
	d.ShowProgress = raw.ShowProgress == nil || *raw.ShowProgress
	d.Start = d.EntryID()
	if !d.Has(d.SelectedNode) {
		d.SelectedNode = d.Start
	}
	return d, nil
}

// LoadDraft returns the saved draft, or a fresh one when nothing is saved.
// An unusable snapshot also yields a fresh draft, together with an error
// describing why it was dropped.
func LoadDraft(ctx context.Context, st Store, env story.Env) (story.Draft, error) {
	fresh := func() story.Draft { return story.NewDraft(env.NewID(), env.Now()) }

	data, err := st.Load(ctx, KeyEditorState)
	if stderrors.Is(err, ErrNotFound) {
		return fresh(), nil
	}
	if err != nil {
		return story.Draft{}, err
	}
	d, err := DecodeDraft(data)
	if err != nil {
		return fresh(), fmt.Errorf("discarded saved draft: %w", err)
	}
	return d, nil
}

// SaveDraft replaces the saved draft.
func SaveDraft(ctx context.Context, st Store, d story.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return st.Save(ctx, KeyEditorState, data)
}

// LoadEditor restores an editing session: the draft and, if one was
// saved, the snapshot from before the last destructive edit.
func LoadEditor(ctx context.Context, st Store, env story.Env) (*story.Editor, error) {
	d, loadErr := LoadDraft(ctx, st, env)
	if loadErr != nil && d.Nodes == nil {
		return nil, loadErr
	}
	opts := []story.EditorOption{story.WithEnv(env)}
	if data, err := st.Load(ctx, KeyEditorUndo); err == nil {
		if undo, err := DecodeDraft(data); err == nil {
			opts = append(opts, story.WithUndo(undo))
		}
	}
	return story.NewEditor(d, opts...), loadErr
}

// SaveEditor saves the draft and the undo snapshot of e. The undo key is
// removed when there is nothing to undo.
func SaveEditor(ctx context.Context, st Store, e *story.Editor) error {
	if err := SaveDraft(ctx, st, e.Draft()); err != nil {
		return err
	}
	undo, ok := e.UndoSnapshot()
	if !ok {
		return st.Delete(ctx, KeyEditorUndo)
	}
	data, err := json.Marshal(undo)
	if err != nil {
		return fmt.Errorf("encode undo snapshot: %w", err)
	}
	return st.Save(ctx, KeyEditorUndo, data)
}

// ResetEditor removes the draft and its undo snapshot.
func ResetEditor(ctx context.Context, st Store) error {
	if err := st.Delete(ctx, KeyEditorState); err != nil {
		return err
	}
	return st.Delete(ctx, KeyEditorUndo)
}

// LoadPlayer resumes the saved reading position, or starts fallback when
// nothing is saved. A snapshot that fails validation is deleted, the player
// starts on fallback, and the returned error says why.
func LoadPlayer(ctx context.Context, st Store, fallback story.Story) (*playback.Player, error) {
	data, err := st.Load(ctx, KeyPlayerState)
	if stderrors.Is(err, ErrNotFound) {
		return playback.New(fallback), nil
	}
	if err != nil {
		return playback.New(fallback), err
	}
	p, err := playback.Resume(data, fallback)
	if err != nil {
		_ = st.Delete(ctx, KeyPlayerState)
		return p, fmt.Errorf("discarded saved progress: %w", err)
	}
	return p, nil
}

// SavePlayer replaces the saved reading position.
func SavePlayer(ctx context.Context, st Store, p *playback.Player) error {
	data, err := json.Marshal(p.State())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return st.Save(ctx, KeyPlayerState, data)
}
