package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/statelayout/pkg/cache"
	"github.com/matzehuels/statelayout/pkg/config"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/pipeline"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.runCacheClear(cmd.Context(), cfg)
		},
	}
}

func (c *CLI) runCacheClear(ctx context.Context, cfg *config.Config) error {
	if cfg.Cache.Backend == config.CacheNone {
		printInfo("Caching is disabled")
		return nil
	}

	layoutCache, err := pipeline.NewCache(cfg)
	if err != nil {
		return err
	}
	defer layoutCache.Close()

	clearer, ok := layoutCache.(cache.Clearer)
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "%s cache cannot be cleared", cfg.Cache.Backend)
	}
	if err := clearer.Clear(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "clear %s cache", cfg.Cache.Backend)
	}

	printSuccess("Cleared %s cache", cfg.Cache.Backend)
	switch cfg.Cache.Backend {
	case config.CacheFile:
		printDetail("Directory: %s", cfg.Cache.Dir)
	case config.CacheRedis:
		printDetail("Redis: %s (prefix %q)", cfg.Cache.RedisAddr, cfg.Cache.Prefix)
	}
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Cache.Backend != config.CacheFile {
				return errors.New(errors.ErrCodeInvalidConfig, "cache backend is %s, not file", cfg.Cache.Backend)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			return nil
		},
	}
}
