package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/statelayout/pkg/chart"
	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/engine/remote"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/graph"
	"github.com/matzehuels/statelayout/pkg/layout"
	"github.com/matzehuels/statelayout/pkg/observability"
	"github.com/matzehuels/statelayout/pkg/rect"
)

// Runner executes pipeline runs against one engine.
//
// The Runner is stateless apart from its configuration: every run measures
// into its own rect store and lays out its own graph, so multiple goroutines
// can share one Runner.
type Runner struct {
	Engine    engine.Engine
	Estimator rect.Estimator
	Logger    *log.Logger

	// LayoutOptions are applied to every layouter the runner creates.
	LayoutOptions []layout.Option

	// EngineOptions are sent with every request. A run's Direction is merged
	// on top.
	EngineOptions engine.Options
}

// NewRunner creates a runner that solves with e.
// If logger is nil, log.Default is used.
func NewRunner(e engine.Engine, logger *log.Logger, opts ...layout.Option) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Engine:        e,
		Estimator:     rect.DefaultEstimator(),
		Logger:        logger,
		LayoutOptions: opts,
	}
}

// Execute runs the complete load → layout → export pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	def, g, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Definition = def
	result.Graph = g
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()

	opts.Logger.Debug("loaded definition",
		"name", def.ID,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.LoadTime)

	// Stages 2-4: Measure, layout, export
	l, stats, err := r.Layout(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = l
	result.Stats.MeasureTime = stats.MeasureTime
	result.Stats.LayoutTime = stats.LayoutTime
	result.Stats.EngineTime = stats.EngineTime

	opts.Logger.Info("computed layout",
		"name", def.ID,
		"engine", l.Engine,
		"size", fmt.Sprintf("%.0fx%.0f", l.Width, l.Height),
		"duration", result.Stats.LayoutTime.Round(time.Millisecond))

	return result, nil
}

// Load decodes, validates and builds the definition named by opts.
func (r *Runner) Load(ctx context.Context, opts Options) (*chart.Definition, *digraph.Graph, error) {
	name := opts.Name
	if name == "" {
		name = opts.Path
	}
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, string(opts.Format), name)
	start := time.Now()

	def, g, err := load(opts)
	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	hooks.OnLoadComplete(ctx, string(opts.Format), name, nodes, time.Since(start), err)
	return def, g, err
}

func load(opts Options) (*chart.Definition, *digraph.Graph, error) {
	data := opts.Data
	if opts.Path != "" {
		var err error
		data, err = os.ReadFile(opts.Path)
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "definition %s not found", opts.Path)
		}
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Path)
		}
	}
	def, err := chart.Parse(data, opts.Format)
	if err != nil {
		return nil, nil, err
	}
	g, err := chart.Build(def)
	if err != nil {
		return nil, nil, err
	}
	if opts.Path != "" {
		g.Meta()["source"] = opts.Path
	}
	return def, g, nil
}

// Layout measures g, runs one layout pass and exports the result.
func (r *Runner) Layout(ctx context.Context, g *digraph.Graph, opts Options) (graph.Layout, Stats, error) {
	r.applyLogger(&opts)
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	var stats Stats

	rects := rect.NewStore()
	defer rect.Release(rects, g)

	measureStart := time.Now()
	rect.MeasureGraph(rects, g, r.Estimator)
	stats.MeasureTime = time.Since(measureStart)

	engineOpts := r.EngineOptions
	if opts.Direction != "" {
		engineOpts = engineOpts.Merge(engine.Options{engine.OptDirection: opts.Direction})
	}
	layoutOpts := append([]layout.Option{layout.WithLogger(opts.Logger)}, r.LayoutOptions...)
	layoutOpts = append(layoutOpts, layout.WithOptions(engineOpts))

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	layoutStart := time.Now()
	res, err := layout.New(r.Engine, rects, layoutOpts...).Layout(ctx, g)
	stats.LayoutTime = time.Since(layoutStart)
	if err != nil {
		return graph.Layout{}, stats, classify(err)
	}
	stats.EngineTime = res.Duration

	out, err := graph.Export(g, engine.NameOf(r.Engine))
	if err != nil {
		return graph.Layout{}, stats, errors.Wrap(errors.ErrCodeInternal, err, "export layout")
	}
	return out, stats, nil
}

// Close releases the runner's engine if it holds resources.
func (r *Runner) Close() error {
	if c, ok := r.Engine.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// classify attaches an error code to a failed layout pass. The cause stays
// reachable through errors.Is and errors.As.
func classify(err error) error {
	var coded *errors.Error
	switch {
	case stderrors.As(err, &coded):
		return err
	case stderrors.Is(err, layout.ErrSuperseded):
		return errors.Wrap(errors.ErrCodeLayoutSuperseded, err, "layout superseded")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "layout timed out")
	case stderrors.Is(err, remote.ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, "layout engine unreachable")
	default:
		return errors.Wrap(errors.ErrCodeLayoutFailed, err, "layout failed")
	}
}
