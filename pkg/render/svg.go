package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/render/styles"
)

// Label font sizes.
const (
	ContentFontSize = 13.0
	ChoiceFontSize  = 12.0
)

// SVGOption configures [SVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	style      styles.Style
	margin     float64
	background string
}

func WithStyle(s styles.Style) SVGOption { return func(r *svgRenderer) { r.style = s } }
func WithMargin(m float64) SVGOption     { return func(r *svgRenderer) { r.margin = max(0, m) } }

// WithBackground fills the canvas with color; the default is transparent.
func WithBackground(color string) SVGOption {
	return func(r *svgRenderer) { r.background = color }
}

// SVG draws res. Boxes keep their layout sizes; the canvas is the diagram
// bounds plus the margin on every side.
func SVG(res *layout.Result, opts ...SVGOption) []byte {
	r := svgRenderer{style: styles.Simple{}, margin: DefaultMargin}
	for _, opt := range opts {
		opt(&r)
	}

	dx, dy := r.margin-res.Bounds.X, r.margin-res.Bounds.Y
	width := res.Bounds.Width + 2*r.margin
	height := res.Bounds.Height + 2*r.margin

	boxes := buildBoxes(res, dx, dy)
	edges := buildEdges(res, boxes, dx, dy)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	r.style.RenderDefs(&buf)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", styles.EscapeXML(r.background))
	}
	for _, e := range edges {
		r.style.RenderEdge(&buf, e)
	}
	for _, n := range res.Nodes {
		b := boxes[n.ID]
		r.style.RenderBox(&buf, b)
		r.style.RenderText(&buf, b)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func buildBoxes(res *layout.Result, dx, dy float64) map[string]styles.Box {
	boxes := make(map[string]styles.Box, len(res.Nodes))
	for _, n := range res.Nodes {
		size := ContentFontSize
		if n.Kind == layout.KindChoice.String() {
			size = ChoiceFontSize
		}
		boxes[n.ID] = styles.Box{
			ID:       layout.ElementID(n.ID),
			NodeID:   n.ID,
			Kind:     n.Kind,
			Category: string(n.Category),
			Lines:    styles.WrapLabel(n.Label, n.Width, n.Height, size),
			X:        n.X + dx,
			Y:        n.Y + dy,
			W:        n.Width,
			H:        n.Height,
			Fill:     FillFor(n.Category),
			FontSize: size,
			Pinned:   n.Pinned,
		}
	}
	return boxes
}

// buildEdges turns diagram edges into border-to-border polylines shifted by
// dx, dy. Bend points are kept; the two ends are clipped to the box borders.
func buildEdges(res *layout.Result, boxes map[string]styles.Box, dx, dy float64) []styles.Edge {
	edges := make([]styles.Edge, 0, len(res.Edges))
	for _, e := range res.Edges {
		from, ok1 := boxes[e.From]
		to, ok2 := boxes[e.To]
		if !ok1 || !ok2 {
			continue
		}
		mid := make([]layout.Point, len(e.Points))
		for i, p := range e.Points {
			mid[i] = layout.Point{X: p.X + dx, Y: p.Y + dy}
		}

		fx, fy := from.Center()
		tx, ty := to.Center()
		towardTarget, towardSource := layout.Point{X: tx, Y: ty}, layout.Point{X: fx, Y: fy}
		if len(mid) > 0 {
			towardTarget, towardSource = mid[0], mid[len(mid)-1]
		}

		pts := make([]layout.Point, 0, len(mid)+2)
		pts = append(pts, clip(from, towardTarget))
		pts = append(pts, mid...)
		pts = append(pts, clip(to, towardSource))
		edges = append(edges, styles.Edge{From: e.From, To: e.To, Points: pts, Loop: e.Reversed})
	}
	return edges
}

// clip returns where the segment from the center of b toward p leaves b.
func clip(b styles.Box, p layout.Point) layout.Point {
	cx, cy := b.Center()
	vx, vy := p.X-cx, p.Y-cy
	if vx == 0 && vy == 0 {
		return layout.Point{X: cx, Y: cy}
	}
	t := math.Inf(1)
	if vx != 0 {
		t = math.Min(t, b.W/2/math.Abs(vx))
	}
	if vy != 0 {
		t = math.Min(t, b.H/2/math.Abs(vy))
	}
	t = math.Min(t, 1)
	return layout.Point{X: cx + vx*t, Y: cy + vy*t}
}
