package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/observability"
	"github.com/matzehuels/storyweave/pkg/render"
)

// RenderFromLayout draws res in every format of opts.
func RenderFromLayout(ctx context.Context, res *layout.Result, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		start := time.Now()
		data, err := render.Render(ctx, res, opts.RenderOptions(format))
		observability.Pipeline().OnRender(ctx, format, len(data), time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFromLayoutData draws a serialized layout, e.g. one computed by the
// server and posted back by a client.
func RenderFromLayoutData(ctx context.Context, data []byte, opts Options) (map[string][]byte, error) {
	var res layout.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return RenderFromLayout(ctx, &res, opts)
}
