package layout

import (
	"context"
	"math"
	"strings"

	"github.com/matzehuels/storyweave/pkg/story"
)

// CategoryChoice is the category of choice boxes.
const CategoryChoice story.Category = "choice"

// PreviewLength is the number of text characters shown on a passage box.
const PreviewLength = 40

// DiagramNode is one placed box.
type DiagramNode struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Label    string         `json:"label"`
	Text     string         `json:"text,omitempty"`
	Category story.Category `json:"category"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Pinned   bool           `json:"pinned,omitempty"`

	// Source and Option identify the option a choice box stands for.
	Source string `json:"source,omitempty"`
	Option int    `json:"option,omitempty"`
}

// Center returns the center of the box.
func (n DiagramNode) Center() Point {
	return Point{X: n.X + n.Width/2, Y: n.Y + n.Height/2}
}

// DiagramEdge is one drawn connection. Points are the bend points between
// the two boxes; they are dropped when either endpoint is pinned, since
// they no longer line up with a moved box.
type DiagramEdge struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Points   []Point `json:"points,omitempty"`
	Reversed bool    `json:"reversed,omitempty"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is a complete diagram ready for rendering.
type Result struct {
	Direction Direction     `json:"direction"`
	Nodes     []DiagramNode `json:"nodes"`
	Edges     []DiagramEdge `json:"edges"`
	Bounds    Rect          `json:"bounds"`
}

// Diagram lays out s and decorates the result for display. Passage boxes
// are labeled "Node k: " plus a text preview and classified with
// story.Classify; choice boxes carry the option text.
func Diagram(s story.Story, opts Options, overrides *Overrides) *Result {
	res, _ := DiagramContext(context.Background(), s, opts, overrides)
	return res
}

// DiagramContext is Diagram that gives up with ctx.Err() once ctx is done.
func DiagramContext(ctx context.Context, s story.Story, opts Options, overrides *Overrides) (*Result, error) {
	opts = opts.withDefaults()
	nodes, edges := Build(s)
	sol, err := compute(ctx, nodes, edges, opts)
	if err != nil {
		return nil, err
	}
	final := Merge(sol.positions, overrides)

	labels := story.Labels(s.Nodes)
	choices := choiceSources(s)

	res := &Result{Direction: opts.Direction, Nodes: make([]DiagramNode, 0, len(nodes))}
	for _, n := range nodes {
		p := final[n.ID]
		_, pinned := overrides.Lookup(n.ID)
		dn := DiagramNode{
			ID:     n.ID,
			Kind:   n.Kind.String(),
			X:      p.X,
			Y:      p.Y,
			Width:  n.Width,
			Height: n.Height,
			Pinned: pinned,
		}
		if n.Kind == KindChoice {
			ref := choices[n.ID]
			dn.Label = s.Nodes[ref.source].Options[ref.index].Text
			dn.Category = CategoryChoice
			dn.Source, dn.Option = ref.source, ref.index
		} else {
			text := s.Nodes[n.ID].Text
			dn.Label = labels[n.ID] + ": " + Preview(text)
			dn.Text = text
			dn.Category = story.Classify(s, n.ID)
		}
		res.Nodes = append(res.Nodes, dn)
	}

	for i, e := range edges {
		de := DiagramEdge{From: e.From, To: e.To}
		if r, ok := sol.routes[i]; ok {
			de.Reversed = r.Reversed
			_, fromPinned := overrides.Lookup(e.From)
			_, toPinned := overrides.Lookup(e.To)
			if !fromPinned && !toPinned {
				de.Points = r.Points
			}
		}
		res.Edges = append(res.Edges, de)
	}

	res.Bounds = bounds(res)
	return res, nil
}

// Preview shortens text to [PreviewLength] characters, adding "..." when
// something was cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}

func choiceSources(s story.Story) map[string]optionRef {
	names := choiceIDs(s, contentOrder(s))
	refs := make(map[string]optionRef, len(names))
	for ref, cid := range names {
		refs[cid] = ref
	}
	return refs
}

func bounds(res *Result) Rect {
	if len(res.Nodes) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x0, y0, x1, y1 float64) {
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}
	for _, n := range res.Nodes {
		grow(n.X, n.Y, n.X+n.Width, n.Y+n.Height)
	}
	for _, e := range res.Edges {
		for _, p := range e.Points {
			grow(p.X, p.Y, p.X, p.Y)
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Lookup returns the node with the given ID.
func (r *Result) Lookup(id string) (DiagramNode, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return DiagramNode{}, false
}

// ContentNodes returns the passage boxes only.
func (r *Result) ContentNodes() []DiagramNode {
	var out []DiagramNode
	for _, n := range r.Nodes {
		if n.Kind == KindContent.String() {
			out = append(out, n)
		}
	}
	return out
}

func safeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}

// ElementID returns an XML-safe element id for node id.
func ElementID(id string) string { return "node-" + safeID(id) }
