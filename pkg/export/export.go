// Package export produces the two distributable forms of a story: an
// indented JSON document and a standalone HTML page that plays the story
// in a browser without any server.
//
// Both go through [Prepare], which fills in the title and author, adds
// the "Node k" labels to every node and option target, and then runs
// strict validation. A story with unlinked options, a missing start or
// any other defect is refused with the validator's error and nothing is
// written.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"regexp"
	"strings"

	"github.com/matzehuels/storyweave/pkg/buildinfo"
	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

// Export defaults.
const (
	DefaultTitle  = "Untitled Story"
	DefaultAuthor = "Anonymous"
)

// Prepare returns an export-ready copy of s. It never modifies s.
func Prepare(s story.Story) (story.Story, error) {
	out := s.Clone()
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = DefaultTitle
	}
	out.Author = strings.TrimSpace(out.Author)
	if out.Author == "" {
		out.Author = DefaultAuthor
	}
	out.Description = strings.TrimSpace(out.Description)

	labels := story.Labels(out.Nodes)
	for id, n := range out.Nodes {
		n.Label = labels[id]
		for i, opt := range n.Options {
			if l, ok := labels[opt.Next]; ok {
				n.Options[i].NextLabel = l
			} else {
				n.Options[i].NextLabel = story.UnknownLabel
			}
		}
		out.Nodes[id] = n
	}

	if res := validate.Validate(out, validate.Strict); !res.Valid {
		return story.Story{}, res.Err()
	}
	return out, nil
}

// JSON returns the indented data document for s.
func JSON(s story.Story) ([]byte, error) {
	out, err := Prepare(s)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode story")
	}
	return append(data, '\n'), nil
}

//go:embed player.html.tmpl
var playerHTML string

var playerTemplate = template.Must(template.New("player").Parse(playerHTML))

type pageData struct {
	Title       string
	Author      string
	Description string
	Version     string
	StorageKey  string
	Story       story.Story
}

// HTML returns a self-contained page that plays s. Reader progress is kept
// in the browser's localStorage under [story.ProgressKey] of the exported
// title, and a returning reader is offered to continue or start over.
func HTML(s story.Story) ([]byte, error) {
	out, err := Prepare(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = playerTemplate.Execute(&buf, pageData{
		Title:       out.Title,
		Author:      out.Author,
		Description: out.Description,
		Version:     buildinfo.Version,
		StorageKey:  story.ProgressKey(out.Title),
		Story:       out,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render player page")
	}
	return buf.Bytes(), nil
}

// MaxFilenameLength caps the base name produced by [Filename].
const MaxFilenameLength = 50

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]+`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// Filename derives a download name from a story title: characters that are
// not allowed in file names are removed, whitespace runs become "_", and the
// result is cut to [MaxFilenameLength] characters. An empty title uses the
// default title; a title with nothing usable left becomes "story". ext is
// appended with a leading dot.
func Filename(title, ext string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	name := unsafeFilenameChars.ReplaceAllString(title, "")
	name = filenameSpaces.ReplaceAllString(name, "_")
	if r := []rune(name); len(r) > MaxFilenameLength {
		name = string(r[:MaxFilenameLength])
	}
	if strings.Trim(name, "_.") == "" {
		name = "story"
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return name
	}
	return name + "." + ext
}
