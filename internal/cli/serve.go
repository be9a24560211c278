package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/internal/config"
	"github.com/matzehuels/storyweave/pkg/cache"
	"github.com/matzehuels/storyweave/pkg/gallery"
	"github.com/matzehuels/storyweave/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validate, layout, diagram, export and play API over HTTP",
		Long: `Serve the validate, layout, diagram, export and play API over HTTP.

Routes:
  GET    /healthz
  POST   /api/v1/validate?mode=strict
  POST   /api/v1/layout
  POST   /api/v1/diagram/{svg|png|pdf|dot|json}
  POST   /api/v1/export/{json|html}
  POST   /api/v1/play
  GET    /api/v1/gallery?url=...
  GET|PUT|DELETE /api/v1/state/{key}

The server shares the configured store and cache with the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: "+server.DefaultAddr+")")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(runner,
		server.WithConfig(cfg.Server),
		server.WithStore(st),
		server.WithGallery(c.newGalleryClient(cfg, runner.Cache), cfg.Gallery.URL),
		server.WithMaxNodes(cfg.Limits.MaxNodes),
		server.WithLogger(c.Logger),
	)

	c.out.success("Serving on http://%s", cfg.Server.Addr)
	c.out.detail("store %s · cache %s", cfg.Store.Driver, cacheLabel(c.noCache, cfg))
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// newGalleryClient returns a gallery client sharing ch for responses.
func (c *CLI) newGalleryClient(cfg config.Config, ch cache.Cache) *gallery.Client {
	return gallery.NewClient(
		gallery.WithCache(ch, cfg.Gallery.CacheTTL),
		gallery.WithKeyer(newKeyer(cfg)),
		gallery.WithRetry(cfg.Gallery.Attempts, gallery.DefaultRetryDelay),
		gallery.WithLogger(c.Logger),
	)
}

func cacheLabel(disabled bool, cfg config.Config) string {
	if disabled {
		return config.CacheNone
	}
	return cfg.Cache.Driver
}
