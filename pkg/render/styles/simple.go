package styles

import (
	"bytes"
	"fmt"
	"strings"
)

// Simple draws flat filled boxes and straight polyline connectors.
type Simple struct{}

func (Simple) RenderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	arrowMarker(buf, Stroke)
	buf.WriteString("  </defs>\n")
}

func (Simple) RenderBox(buf *bytes.Buffer, b Box) {
	rx := 4.0
	if b.Kind == "choice" {
		rx = b.H / 2
	}
	stroke := 1.5
	if b.Pinned {
		stroke = 3
	}
	fmt.Fprintf(buf, `  <rect id="%s" class="box %s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.1f" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
		EscapeXML(b.ID), EscapeXML(b.Category), b.X, b.Y, b.W, b.H, rx, b.Fill, Stroke, stroke)
}

func (Simple) RenderEdge(buf *bytes.Buffer, e Edge) {
	if len(e.Points) < 2 {
		return
	}
	pts := make([]string, len(e.Points))
	for i, p := range e.Points {
		pts[i] = fmt.Sprintf("%.2f,%.2f", p.X, p.Y)
	}
	dash := ""
	if e.Loop {
		dash = ` stroke-dasharray="6 4"`
	}
	fmt.Fprintf(buf, `  <polyline class="edge" data-from="%s" data-to="%s" points="%s" fill="none" stroke="%s" stroke-width="1.5"%s marker-end="url(#%s)"/>`+"\n",
		EscapeXML(e.From), EscapeXML(e.To), strings.Join(pts, " "), Stroke, dash, ArrowMarkerID)
}

func (Simple) RenderText(buf *bytes.Buffer, b Box) {
	WriteLabel(buf, b, FontFamily, "#ffffff")
}
