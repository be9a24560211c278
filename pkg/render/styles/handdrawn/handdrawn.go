// Package handdrawn provides a sketch-like style for story diagrams.
//
// Box outlines are traced with slightly jittered quadratic curves and
// long connectors bow gently, so the diagram looks drawn by hand. All
// jitter is derived from the seed and the element id; the same diagram
// rendered twice with the same seed is byte-identical, which keeps
// rendered artifacts cacheable.
//
//	style := handdrawn.New(42)
//	svg := render.SVG(res, render.WithStyle(style))
package handdrawn

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/render/styles"
)

// FontFamily is the handwriting font stack.
const FontFamily = `'xkcd Script', 'Comic Sans MS', 'Bradley Hand', 'Segoe Script', sans-serif`

const (
	wobble       = 2.0 // max outline displacement
	bowRatio     = 0.08
	straightEdge = 40.0 // connectors shorter than this are not curved
)

// Handdrawn is the sketch style.
type Handdrawn struct {
	seed uint64
}

// New returns the style with the given jitter seed.
func New(seed uint64) Handdrawn { return Handdrawn{seed: seed} }

func (h Handdrawn) RenderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	buf.WriteString(`    <filter id="rough"><feTurbulence type="fractalNoise" baseFrequency="0.03" numOctaves="2" result="noise"/>` +
		`<feDisplacementMap in="SourceGraphic" in2="noise" scale="1.5"/></filter>` + "\n")
	fmt.Fprintf(buf, `    <marker id="%s" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">`+"\n", styles.ArrowMarkerID)
	fmt.Fprintf(buf, `      <path d="M 0 1 Q 5 5 10 5 Q 5 5 0 9" fill="none" stroke="%s" stroke-width="1.5"/>`+"\n", styles.Stroke)
	buf.WriteString("    </marker>\n")
	buf.WriteString("  </defs>\n")
}

func (h Handdrawn) RenderBox(buf *bytes.Buffer, b styles.Box) {
	width := 2.0
	if b.Pinned {
		width = 3.5
	}
	fmt.Fprintf(buf, `  <path id="%s" class="box %s" d="%s" fill="%s" stroke="%s" stroke-width="%.1f" stroke-linejoin="round" filter="url(#rough)" transform="rotate(%.2f %.2f %.2f)"/>`+"\n",
		styles.EscapeXML(b.ID), styles.EscapeXML(b.Category),
		wobbledRect(b.X, b.Y, b.W, b.H, h.seed, b.NodeID),
		b.Fill, styles.Stroke, width,
		rotationFor(b.NodeID, h.seed), b.X+b.W/2, b.Y+b.H/2)
}

func (h Handdrawn) RenderEdge(buf *bytes.Buffer, e styles.Edge) {
	if len(e.Points) < 2 {
		return
	}
	dash := ""
	if e.Loop {
		dash = ` stroke-dasharray="7 5"`
	}
	fmt.Fprintf(buf, `  <path class="edge" data-from="%s" data-to="%s" d="%s" fill="none" stroke="%s" stroke-width="1.8" stroke-linecap="round"%s marker-end="url(#%s)"/>`+"\n",
		styles.EscapeXML(e.From), styles.EscapeXML(e.To), curvedPath(e.Points), styles.Stroke, dash, styles.ArrowMarkerID)
}

func (h Handdrawn) RenderText(buf *bytes.Buffer, b styles.Box) {
	b.FontSize *= 1.1
	styles.WriteLabel(buf, b, FontFamily, "#ffffff")
}

// wobbledRect traces the rectangle with a jittered quadratic curve per side.
func wobbledRect(x, y, w, h float64, seed uint64, id string) string {
	r := newRNG(hash(id, seed))
	j := func() float64 { return (r.next()*2 - 1) * math.Min(wobble, math.Min(w, h)/8) }

	corners := [4][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	var sb strings.Builder
	fmt.Fprintf(&sb, "M%.2f,%.2f", corners[0][0]+j(), corners[0][1]+j())
	for i := 1; i <= 4; i++ {
		a, b := corners[i-1], corners[i%4]
		mx, my := (a[0]+b[0])/2+j(), (a[1]+b[1])/2+j()
		fmt.Fprintf(&sb, " Q%.2f,%.2f %.2f,%.2f", mx, my, b[0]+j(), b[1]+j())
	}
	sb.WriteString(" Z")
	return sb.String()
}

// curvedPath draws a polyline whose long segments bow slightly to the side.
func curvedPath(pts []layout.Point) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "M%.2f,%.2f", pts[0].X, pts[0].Y)
	for i := 1; i < len(pts); i++ {
		sb.WriteString(" ")
		sb.WriteString(curvedSegment(pts[i-1], pts[i]))
	}
	return sb.String()
}

func curvedSegment(a, b layout.Point) string {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length < straightEdge {
		return fmt.Sprintf("L%.2f,%.2f", b.X, b.Y)
	}
	// Both control points are pushed off the chord along its normal.
	ox, oy := -dy*bowRatio, dx*bowRatio
	c1x, c1y := a.X+dx/3+ox, a.Y+dy/3+oy
	c2x, c2y := a.X+2*dx/3+ox, a.Y+2*dy/3+oy
	return fmt.Sprintf("C%.2f,%.2f %.2f,%.2f %.2f,%.2f", c1x, c1y, c2x, c2y, b.X, b.Y)
}

// rotationFor returns a small deterministic tilt in degrees.
func rotationFor(id string, seed uint64) float64 {
	return (newRNG(hash(id, seed^0x9e3779b97f4a7c15)).next()*2 - 1) * 1.2
}

func hash(s string, seed uint64) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for i := range b {
		b[i] = byte(seed >> (8 * i))
	}
	h.Write(b[:])
	h.Write([]byte(s))
	return h.Sum64()
}

// rng is a xorshift64* generator.
type rng struct{ state uint64 }

func newRNG(seed uint64) *rng {
	if seed == 0 {
		seed = 0x2545f4914f6cdd1d
	}
	return &rng{state: seed}
}

// next returns a value in [0, 1).
func (r *rng) next() float64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	return float64((r.state*0x2545f4914f6cdd1d)>>11) / (1 << 53)
}
