// Package styles draws the pieces of a story diagram as SVG.
//
// A [Style] is handed boxes and edges that already carry their final
// coordinates and colors; it only decides how they look. [Simple] draws
// flat rounded rectangles and straight connectors. The handdrawn
// subpackage draws wobbly sketch-like shapes.
package styles

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/storyweave/pkg/layout"
)

// Style defines the visual appearance of a diagram.
type Style interface {
	// RenderDefs writes SVG <defs> content (markers, filters).
	RenderDefs(buf *bytes.Buffer)
	// RenderBox writes the shape of one passage or choice box.
	RenderBox(buf *bytes.Buffer, b Box)
	// RenderEdge writes one connector.
	RenderEdge(buf *bytes.Buffer, e Edge)
	// RenderText writes the label of a box.
	RenderText(buf *bytes.Buffer, b Box)
}

// Box is one node ready to draw.
type Box struct {
	ID         string   // XML element id
	NodeID     string   // story or choice node id
	Kind       string   // "content" or "choice"
	Category   string   // classification, used as CSS class
	Lines      []string // wrapped label
	X, Y, W, H float64
	Fill       string
	FontSize   float64
	Pinned     bool
}

// Center returns the center of the box.
func (b Box) Center() (float64, float64) { return b.X + b.W/2, b.Y + b.H/2 }

// Edge is one connector ready to draw. Points run from the border of the
// source box to the border of the target box.
type Edge struct {
	From, To string
	Points   []layout.Point
	Loop     bool // closes a cycle; drawn against the rank flow
}

// ArrowMarkerID is the id of the arrowhead marker defined by RenderDefs.
const ArrowMarkerID = "arrow"

// Stroke is the outline color of boxes and connectors.
const Stroke = "#1d1d1d"

// FontFamily is the font stack of the flat style.
const FontFamily = `system-ui, -apple-system, "Segoe UI", sans-serif`

func arrowMarker(buf *bytes.Buffer, color string) {
	fmt.Fprintf(buf, `    <marker id="%s" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="7" markerHeight="7" orient="auto-start-reverse">`+"\n", ArrowMarkerID)
	fmt.Fprintf(buf, `      <path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/>`+"\n", color)
	buf.WriteString("    </marker>\n")
}

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

const (
	fontCharWidth = 0.55
	lineHeight    = 1.25
	textPadding   = 0.85
)

// WrapLabel breaks label into lines that fit a w×h box at fontSize. Words
// longer than a line are split; text that does not fit in the available
// lines is cut and ends in "...".
func WrapLabel(label string, w, h, fontSize float64) []string {
	perLine := max(4, int(w*textPadding/(fontSize*fontCharWidth)))
	maxLines := max(1, int(h*textPadding/(fontSize*lineHeight)))

	var lines []string
	var cur []rune
	flush := func() {
		lines = append(lines, string(cur))
		cur = cur[:0]
	}
	for _, word := range strings.Fields(label) {
		rw := []rune(word)
		for len(rw) > perLine {
			if len(cur) > 0 {
				flush()
			}
			lines = append(lines, string(rw[:perLine]))
			rw = rw[perLine:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, rw...)
		case len(cur)+1+len(rw) <= perLine:
			cur = append(cur, ' ')
			cur = append(cur, rw...)
		default:
			flush()
			cur = append(cur, rw...)
		}
	}
	if len(cur) > 0 {
		flush()
	}

	if len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	last := []rune(lines[maxLines-1])
	if len(last) > perLine-3 {
		last = last[:perLine-3]
	}
	lines[maxLines-1] = strings.TrimRight(string(last), " ") + "..."
	return lines
}

// WriteLabel writes the wrapped label of b centered in the box.
func WriteLabel(buf *bytes.Buffer, b Box, family, color string) {
	cx, cy := b.Center()
	step := b.FontSize * lineHeight
	y0 := cy - step*float64(len(b.Lines)-1)/2
	fmt.Fprintf(buf, `  <text class="label" data-node="%s" x="%.2f" y="%.2f" font-family="%s" font-size="%.1f" fill="%s" text-anchor="middle" dominant-baseline="middle">`,
		EscapeXML(b.NodeID), cx, y0, EscapeXML(family), b.FontSize, color)
	for i, line := range b.Lines {
		dy := 0.0
		if i > 0 {
			dy = step
		}
		fmt.Fprintf(buf, `<tspan x="%.2f" dy="%.2f">%s</tspan>`, cx, dy, EscapeXML(line))
	}
	buf.WriteString("</text>\n")
}
