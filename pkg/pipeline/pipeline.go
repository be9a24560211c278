// Package pipeline runs the load → layout → render sequence shared by the
// CLI, the HTTP server and the file watcher.
//
// # Stages
//
//  1. Load: decode and validate a story document
//  2. Layout: compute the diagram (boxes, choice boxes, routed edges)
//  3. Render: draw the diagram in the requested formats
//
// The layout and render stages are cached by content: the key of a layout
// is the hash of the story plus the layout options, the key of an artifact
// is the hash of the layout plus the render options.
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, data, pipeline.Options{Formats: []string{"svg", "png"}})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyweave/pkg/cache"
	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/render"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

// Defaults shared by the CLI, the server and the watcher.
const (
	DefaultMode   = "loose"
	DefaultFormat = string(render.FormatSVG)
	DefaultStyle  = render.StyleSimple
	DefaultSeed   = uint64(42)
)

// Options configures a pipeline run. It doubles as the JSON body of the
// server's render endpoints.
type Options struct {
	// Load options
	Mode string `json:"mode,omitempty"`

	// Layout options
	Direction string            `json:"direction,omitempty"`
	NodeSep   float64           `json:"node_sep,omitempty"`
	RankSep   float64           `json:"rank_sep,omitempty"`
	Sweeps    int               `json:"sweeps,omitempty"`
	Overrides *layout.Overrides `json:"overrides,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Style   string   `json:"style,omitempty"`
	Seed    uint64   `json:"seed,omitempty"`
	Margin  float64  `json:"margin,omitempty"`
	Scale   float64  `json:"scale,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result holds the outputs of a full run.
type Result struct {
	Story     story.Story
	StoryHash string
	Layout    *layout.Result
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats reports sizes and stage timings.
type Stats struct {
	NodeCount   int
	ChoiceCount int
	EdgeCount   int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo reports which stages were served from the cache.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

// ValidateMode checks a validation mode name.
func ValidateMode(mode string) error {
	_, err := validate.ParseMode(mode)
	return err
}

// ValidateFormats checks that every format is supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if _, err := render.ParseFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStyle checks a style name.
func ValidateStyle(style string) error {
	_, err := render.StyleByName(style, 0)
	return err
}

// ValidateAndSetDefaults applies defaults for every stage and checks the
// result. Calling it again is a no-op.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad sets the load defaults and checks the mode.
func (o *Options) ValidateForLoad() error {
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	o.setLogger()
	return ValidateMode(o.Mode)
}

// SetLayoutDefaults fills in zero layout fields.
func (o *Options) SetLayoutDefaults() {
	if o.Direction == "" {
		o.Direction = string(layout.TopBottom)
	}
	if o.NodeSep <= 0 {
		o.NodeSep = layout.DefaultNodeSep
	}
	if o.RankSep <= 0 {
		o.RankSep = layout.DefaultRankSep
	}
	if o.Sweeps <= 0 {
		o.Sweeps = layout.DefaultSweeps
	}
	o.setLogger()
}

// ValidateForLayout sets the layout defaults and checks the direction.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	d, err := layout.ParseDirection(o.Direction)
	if err != nil {
		return err
	}
	o.Direction = string(d)
	return nil
}

// SetRenderDefaults fills in zero render fields.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	o.setLogger()
}

// ValidateForRender sets the render defaults, checks formats and style
// and normalizes format names.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	o.Formats = slices.Clone(o.Formats)
	for i, f := range o.Formats {
		format, err := render.ParseFormat(f)
		if err != nil {
			return err
		}
		o.Formats[i] = string(format)
	}
	return ValidateStyle(o.Style)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidationMode returns the parsed load mode. Unknown names are Loose.
func (o *Options) ValidationMode() validate.Mode {
	m, err := validate.ParseMode(o.Mode)
	if err != nil {
		return validate.Loose
	}
	return m
}

// LayoutOptions converts to layout options.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		Direction: layout.Direction(o.Direction),
		NodeSep:   o.NodeSep,
		RankSep:   o.RankSep,
		Sweeps:    o.Sweeps,
	}
}

// RenderOptions converts to render options for one format.
func (o *Options) RenderOptions(format string) render.Options {
	return render.Options{
		Format: render.Format(format),
		Margin: o.Margin,
		Style:  o.Style,
		Seed:   o.Seed,
		Scale:  o.Scale,
	}
}

// LayoutKeyOpts returns the cache key inputs of the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	k := cache.LayoutKeyOpts{
		Direction: o.Direction,
		NodeSep:   o.NodeSep,
		RankSep:   o.RankSep,
		Sweeps:    o.Sweeps,
	}
	if o.Overrides.Len() > 0 {
		k.OverridesHash, _ = cache.HashJSON(o.Overrides)
	}
	return k
}

// ArtifactKeyOpts returns the cache key inputs of one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Style:  o.Style,
		Seed:   o.Seed,
		Margin: o.Margin,
		Scale:  o.Scale,
	}
}

func (o *Options) String() string {
	return fmt.Sprintf("mode=%s direction=%s formats=%v style=%s", o.Mode, o.Direction, o.Formats, o.Style)
}
