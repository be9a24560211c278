// Package render turns a laid-out story diagram into files.
//
// # Formats
//
//   - SVG is written directly from the layout positions by [SVG], using a
//     pluggable [styles.Style].
//   - DOT ([ToDOT]) pins every box at its computed position, so Graphviz
//     draws the same picture instead of laying the graph out again.
//   - PNG is rendered by Graphviz (neato with pinned positions) from that
//     DOT document; see [RenderDOT].
//   - PDF is converted from the SVG with rsvg-convert ([ToPDF]).
//   - JSON is the [layout.Result] itself.
//
// All outputs are cropped to the diagram bounds plus a margin.
//
//	res := layout.Diagram(s, layout.DefaultOptions(), nil)
//	svg := render.SVG(res, render.WithMargin(20))
//	png, err := render.Render(ctx, res, render.Options{Format: render.FormatPNG})
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/render/styles"
	"github.com/matzehuels/storyweave/pkg/render/styles/handdrawn"
	"github.com/matzehuels/storyweave/pkg/story"
)

// Format is an output format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF, FormatDOT, FormatJSON}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want svg, png, pdf, dot or json)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "application/json"
	}
}

// DefaultMargin is the space kept around the diagram bounds.
const DefaultMargin = 20.0

// Box fill colors by category.
var Palette = map[story.Category]string{
	story.CategoryStart:     "#669bbc",
	story.CategoryEnding:    "#c1121f",
	story.CategoryBranching: "#3d348b",
	story.CategoryLongText:  "#38b000",
	story.CategoryDefault:   "#343a40",
	layout.CategoryChoice:   "#f18701",
}

// FillFor returns the fill color of category c.
func FillFor(c story.Category) string {
	if color, ok := Palette[c]; ok {
		return color
	}
	return Palette[story.CategoryDefault]
}

// Style names accepted by [StyleByName].
const (
	StyleSimple    = "simple"
	StyleHanddrawn = "handdrawn"
)

// StyleByName returns the named style. Seed only affects the handdrawn style.
func StyleByName(name string, seed uint64) (styles.Style, error) {
	switch strings.ToLower(name) {
	case "", StyleSimple:
		return styles.Simple{}, nil
	case StyleHanddrawn:
		return handdrawn.New(seed), nil
	}
	return nil, fmt.Errorf("unknown style %q (want simple or handdrawn)", name)
}

// Options configures [Render].
type Options struct {
	Format Format
	// Margin is the space around the bounds: 0 means DefaultMargin and a
	// negative value means none.
	Margin float64
	Style  string
	Seed   uint64
	// Scale multiplies the PNG resolution; values <= 0 mean 1.
	Scale float64
}

// Key returns a stable string form of the options for cache keys.
func (o Options) Key() string {
	return fmt.Sprintf("%s/%g/%s/%d/%g", o.Format, o.margin(), o.Style, o.Seed, o.Scale)
}

func (o Options) margin() float64 {
	if o.Margin < 0 {
		return 0
	}
	if o.Margin == 0 {
		return DefaultMargin
	}
	return o.Margin
}

// Render produces res in the requested format.
func Render(ctx context.Context, res *layout.Result, opts Options) ([]byte, error) {
	style, err := StyleByName(opts.Style, opts.Seed)
	if err != nil {
		return nil, err
	}
	margin := opts.margin()

	switch opts.Format {
	case FormatSVG, "":
		return SVG(res, WithMargin(margin), WithStyle(style)), nil
	case FormatDOT:
		return []byte(ToDOT(res, DOTOptions{Margin: margin})), nil
	case FormatPNG:
		return RenderDOT(ctx, ToDOT(res, DOTOptions{Margin: margin, Scale: opts.Scale}), FormatPNG)
	case FormatPDF:
		return ToPDF(ctx, SVG(res, WithMargin(margin), WithStyle(style)))
	case FormatJSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode diagram: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported format %q", opts.Format)
}
