// Package gallery fetches the sample-story manifest.
//
// A manifest is a JSON array. Each entry is either {"id": ..., "story": {...}}
// or a bare story document. Entries are validated one by one; invalid ones
// are dropped without failing the fetch. A manifest that is not an array is
// an error.
//
//	c := gallery.NewClient(gallery.WithCache(fileCache))
//	entries, err := c.Fetch(ctx, "https://example.com/stories.json")
package gallery

import (
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

var (
	// ErrNetwork is returned for transport failures and non-2xx responses.
	ErrNetwork = stderrors.New("network error")
	// ErrNotFound is returned for a 404 response.
	ErrNotFound = stderrors.New("manifest not found")
)

// Entry is one usable sample story.
type Entry struct {
	ID    string      `json:"id"`
	Story story.Story `json:"story"`
}

// Title returns the story title or "Untitled".
func (e Entry) Title() string {
	if t := strings.TrimSpace(e.Story.Title); t != "" {
		return t
	}
	return "Untitled"
}

// Parse decodes a manifest. Entries failing loose validation are skipped.
// Ids fall back to the story title, then to a random UUID.
func Parse(data []byte) ([]Entry, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "Manifest is not valid JSON.")
	}
	if _, ok := doc.([]any); !ok {
		return nil, errors.New(errors.ErrCodeMalformedInput, "Manifest must be an array.")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "Manifest is not valid JSON.")
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		if e, ok := parseEntry(item); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func parseEntry(item json.RawMessage) (Entry, bool) {
	var wrapper struct {
		ID    any             `json:"id"`
		Story json.RawMessage `json:"story"`
	}
	// A non-object entry fails here and is validated (and rejected) as is.
	_ = json.Unmarshal(item, &wrapper)

	doc := item
	if len(wrapper.Story) > 0 && string(wrapper.Story) != "null" {
		doc = wrapper.Story
	}
	s, err := validate.Decode(doc, validate.Import)
	if err != nil {
		return Entry{}, false
	}

	id := idString(wrapper.ID)
	if id == "" {
		id = s.Title
	}
	if id == "" {
		id = uuid.NewString()
	}
	return Entry{ID: id, Story: s}, true
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		data, _ := json.Marshal(id)
		return string(data)
	}
	return ""
}
