package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/statelayout/internal/metrics"
	"github.com/matzehuels/statelayout/internal/server"
	"github.com/matzehuels/statelayout/pkg/config"
	"github.com/matzehuels/statelayout/pkg/pipeline"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP API",
		Long: `Run the layout HTTP API.

POST a definition to /api/v1/layouts to lay it out. Results are stored in the
configured document store (memory or mongo) and can be fetched again by ID.
Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg, !noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config, withMetrics bool) error {
	runner, layoutCache, err := pipeline.NewRunnerFromConfig(cfg, c.Logger)
	if err != nil {
		return err
	}
	defer layoutCache.Close()

	st, err := pipeline.NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.WithoutCancel(ctx))

	opts := []server.Option{
		server.WithLogger(c.Logger),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithLayoutTimeout(cfg.Layout.Timeout.Duration),
		server.WithTimeouts(cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration),
	}
	if withMetrics {
		reg := metrics.NewRegistry()
		reg.Install()
		opts = append(opts, server.WithMetrics(reg))
	}

	fmt.Println(StyleTitle.Render(appName + " API"))
	printKeyValue("engine", cfg.Engine.Name)
	printKeyValue("cache", cfg.Cache.Backend)
	printKeyValue("store", cfg.Store.Backend)
	printKeyValue("listening", StyleLink.Render(listenURL(cfg.Server.Addr)))
	if cfg.Store.Backend == config.StoreMemory {
		printWarning("memory store: layouts are lost on restart")
	}

	return server.New(runner, st, opts...).ListenAndServe(ctx, cfg.Server.Addr)
}

// listenURL turns a listen address into a URL for display.
func listenURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
