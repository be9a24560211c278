package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/render/styles"
)

// pointsPerInch converts diagram units (treated as points) to Graphviz
// inches.
const pointsPerInch = 72.0

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Margin is the padding around the drawing, in diagram units.
	Margin float64
	// Scale multiplies the raster resolution (dpi = 72 × Scale).
	Scale float64
}

// ToDOT converts a diagram to Graphviz DOT. Every node carries a pinned
// pos, so rendering with neato reproduces the computed layout instead of
// replacing it. Graphviz y grows upward; positions are flipped accordingly.
func ToDOT(res *layout.Result, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph story {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  pad=%s;\n", fmtFloat(max(0, opts.Margin)/pointsPerInch))
	if opts.Scale > 0 {
		fmt.Fprintf(&buf, "  dpi=%s;\n", fmtFloat(pointsPerInch*opts.Scale))
	}
	fmt.Fprintf(&buf, "  node [shape=box, fixedsize=true, fontname=\"Helvetica\", fontcolor=white, color=%q, penwidth=1.5];\n", styles.Stroke)
	fmt.Fprintf(&buf, "  edge [color=%q, arrowsize=0.7];\n", styles.Stroke)
	buf.WriteString("\n")

	top := res.Bounds.Y + res.Bounds.Height
	for _, n := range res.Nodes {
		c := n.Center()
		x := c.X - res.Bounds.X
		y := top - c.Y
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, x, y), ", "))
	}

	buf.WriteString("\n")
	for _, e := range res.Edges {
		if e.Reversed {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n layout.DiagramNode, x, y float64) []string {
	size := ContentFontSize
	style := "filled"
	if n.Kind == layout.KindChoice.String() {
		size = ChoiceFontSize
		style = "rounded,filled"
	}
	label := strings.Join(styles.WrapLabel(n.Label, n.Width, n.Height, size), "\n")
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(x), fmtFloat(y)),
		fmt.Sprintf("width=%s", fmtFloat(n.Width/pointsPerInch)),
		fmt.Sprintf("height=%s", fmtFloat(n.Height/pointsPerInch)),
		fmt.Sprintf("fontsize=%s", fmtFloat(size)),
		fmt.Sprintf("style=%q", style),
		fmt.Sprintf("fillcolor=%q", FillFor(n.Category)),
	}
	if n.Pinned {
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderDOT renders a DOT document with Graphviz using the neato engine.
// Only FormatSVG and FormatPNG are supported.
func RenderDOT(ctx context.Context, dot string, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, fmt.Errorf("graphviz cannot render %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if format == FormatSVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's root element with one whose
// viewBox starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
