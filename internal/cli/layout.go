package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/statelayout/pkg/config"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/graph"
	"github.com/matzehuels/statelayout/pkg/pipeline"
)

// layoutFlags are the command-line overrides of the layout command.
type layoutFlags struct {
	output      string
	stdout      bool
	direction   string
	engine      string
	endpoint    string
	noCache     bool
	concurrency int
}

// apply writes the flags that were set onto cfg.
func (f layoutFlags) apply(cfg *config.Config) error {
	if f.engine != "" {
		cfg.Engine.Name = f.engine
	}
	if f.endpoint != "" {
		cfg.Engine.Endpoint = f.endpoint
	}
	if f.direction != "" {
		cfg.Layout.Direction = f.direction
	}
	if f.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	if f.concurrency > 0 {
		cfg.Layout.Concurrency = f.concurrency
	}
	return cfg.Validate()
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "layout <definition>...",
		Short: "Compute layouts for state machine definitions",
		Long: `Compute layouts for state machine definitions.

Each definition (.json, .yaml or .toml) is laid out and written next to its
input as <name>.layout.json. Several definitions are laid out concurrently;
a failing definition does not stop the others.

Engine results are cached, so unchanged definitions are laid out without
calling the engine again. Use --no-cache to bypass the cache.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (flags.output != "" || flags.stdout) && len(args) > 1 {
				return errors.New(errors.ErrCodeInvalidInput, "--output and --stdout take a single definition")
			}
			return c.runLayout(cmd.Context(), args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "write the layout to stdout")
	cmd.Flags().StringVarP(&flags.direction, "direction", "d", "", "layout direction: DOWN, UP, LEFT or RIGHT")
	cmd.Flags().StringVarP(&flags.engine, "engine", "e", "", "layout engine: graphviz or remote")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "remote engine endpoint URL")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().IntVarP(&flags.concurrency, "jobs", "j", 0, "definitions laid out in parallel")

	return cmd
}

// layoutOutcome is the result of laying out one definition.
type layoutOutcome struct {
	input  string
	output string
	result *pipeline.Result
	err    error
}

// runLayout lays out every input and reports the outcomes.
func (c *CLI) runLayout(ctx context.Context, inputs []string, flags layoutFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := flags.apply(cfg); err != nil {
		return err
	}

	runner, layoutCache, err := pipeline.NewRunnerFromConfig(cfg, c.Logger)
	if err != nil {
		return err
	}
	defer layoutCache.Close()

	if flags.stdout {
		res, err := runner.Execute(ctx, pipeline.Options{Path: inputs[0], Timeout: cfg.Layout.Timeout.Duration})
		if err != nil {
			return err
		}
		return graph.WriteLayout(res.Layout, os.Stdout)
	}

	if len(inputs) == 1 {
		return c.layoutOne(ctx, runner, cfg, inputs[0], flags.output)
	}
	return c.layoutBatch(ctx, runner, cfg, inputs)
}

func (c *CLI) layoutOne(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, input, output string) error {
	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Laying out %s...", input))
	spinner.Start()

	out := layoutFile(withLogger(ctx, c.Logger), runner, cfg, input, output)
	if out.err != nil {
		spinner.StopWithError("Layout failed")
		return out.err
	}
	spinner.StopWithSuccess("Layout complete")
	printFile(out.output)
	printStats(out.result.Stats)
	return nil
}

func (c *CLI) layoutBatch(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, inputs []string) error {
	prog := newProgress(c.Logger)
	outcomes := make([]layoutOutcome, len(inputs))

	var g errgroup.Group
	g.SetLimit(cfg.Layout.Concurrency)
	for i, input := range inputs {
		g.Go(func() error {
			fileCtx := withLogger(ctx, c.Logger.With("file", input))
			outcomes[i] = layoutFile(fileCtx, runner, cfg, input, "")
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	failed := 0
	for _, out := range outcomes {
		if out.err != nil {
			failed++
			printError("%s: %s", out.input, errors.UserMessage(out.err))
			continue
		}
		printSuccess("%s", out.input)
		printFile(out.output)
	}
	prog.done(len(inputs)-failed, len(inputs))

	if failed > 0 {
		return errors.New(errors.ErrCodeLayoutFailed, "%d of %d definitions failed", failed, len(inputs))
	}
	return nil
}

// layoutFile runs the pipeline for input and writes the layout to output, or
// next to input when output is empty.
func layoutFile(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, input, output string) layoutOutcome {
	logger := loggerFromContext(ctx)
	out := layoutOutcome{input: input, output: output}
	if out.output == "" {
		out.output = graph.OutputPath(input)
	}

	start := time.Now()
	res, err := runner.Execute(ctx, pipeline.Options{
		Path:    input,
		Timeout: cfg.Layout.Timeout.Duration,
		Logger:  logger,
	})
	if err != nil {
		logger.Debug("layout failed", "err", err)
		out.err = err
		return out
	}
	if err := graph.WriteLayoutFile(res.Layout, out.output); err != nil {
		out.err = errors.Wrap(errors.ErrCodeInternal, err, "write %s", out.output)
		return out
	}
	logger.Debug("wrote layout", "output", out.output, "duration", time.Since(start).Round(time.Millisecond))
	out.result = res
	return out
}
