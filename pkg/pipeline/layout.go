package pipeline

import (
	"context"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/story"
)

// GenerateLayout computes the diagram of s. Manual pins in opts.Overrides
// replace computed positions. It returns ctx.Err() if ctx is done before
// the layout is finished.
func GenerateLayout(ctx context.Context, s story.Story, opts Options) (*layout.Result, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	return layout.DiagramContext(ctx, s, opts.LayoutOptions(), opts.Overrides)
}

// countKinds returns the number of passage and choice boxes.
func countKinds(res *layout.Result) (content, choice int) {
	for _, n := range res.Nodes {
		if n.Kind == layout.KindChoice.String() {
			choice++
		} else {
			content++
		}
	}
	return content, choice
}
