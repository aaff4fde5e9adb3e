package layout

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/observability"
	"github.com/matzehuels/statelayout/pkg/rect"
	"github.com/matzehuels/statelayout/pkg/scope"
)

// ErrSuperseded is returned by [Layouter.Layout] when a pass started from an
// older graph generation finishes after a newer pass was applied. The graph
// keeps the newer records.
var ErrSuperseded = errors.New("layout: superseded by a newer pass")

// DefaultSettleDelay is the pause between the root's readiness signal and
// building the request.
const DefaultSettleDelay = 20 * time.Millisecond

// BackLinkFunc computes the back-link index of a graph.
type BackLinkFunc func(g *digraph.Graph) digraph.BackLinkMap

// Result is the outcome of an applied layout pass.
type Result struct {
	// Root is the result node of the graph root, with Absolute set on every
	// node of the tree.
	Root *engine.ResultNode

	// RootEdges are the engine's routed edges of the root scope.
	RootEdges []*engine.ResultEdge

	// Generation is the graph generation the pass was computed from.
	Generation uint64

	// Request is the request sent to the engine.
	Request *engine.Request

	Duration time.Duration
}

// Option configures a [Layouter].
type Option func(*Layouter)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *log.Logger) Option { return func(o *Layouter) { o.logger = l } }

// WithSettleDelay sets the pause after the root has been measured.
func WithSettleDelay(d time.Duration) Option { return func(o *Layouter) { o.settle = d } }

// WithBackLinks replaces the default back-link index.
func WithBackLinks(fn BackLinkFunc) Option { return func(o *Layouter) { o.backLinks = fn } }

// WithMargin sets the padding around the children of composite nodes.
func WithMargin(m float64) Option { return func(o *Layouter) { o.builder.Margin = m } }

// WithPortSize sets the width and height of ports.
func WithPortSize(s float64) Option { return func(o *Layouter) { o.builder.PortSize = s } }

// WithLabelHeight sets the height of unmeasured labels.
func WithLabelHeight(h float64) Option { return func(o *Layouter) { o.builder.LabelHeight = h } }

// WithFallbackSize sets the size of unmeasured leaves.
func WithFallbackSize(s rect.Size) Option { return func(o *Layouter) { o.builder.FallbackSize = s } }

// WithAspectRatio sets the aspect ratio the engine aims for.
func WithAspectRatio(r string) Option {
	return func(o *Layouter) {
		o.builder.RootOptions = o.builder.RootOptions.Merge(engine.Options{engine.OptAspectRatio: r})
	}
}

// WithOptions sets global options passed along with every request.
func WithOptions(opts engine.Options) Option { return func(o *Layouter) { o.options = opts } }

// Layouter runs layout passes against one engine.
// It is safe for concurrent use; overlapping passes are resolved by
// generation.
type Layouter struct {
	engine    engine.Engine
	rects     rect.Provider
	builder   Builder
	backLinks BackLinkFunc
	options   engine.Options
	settle    time.Duration
	logger    *log.Logger
}

// New returns a layouter that measures through rects and solves with e.
func New(e engine.Engine, rects rect.Provider, opts ...Option) *Layouter {
	l := &Layouter{
		engine:    e,
		rects:     rects,
		builder:   NewBuilder(rects),
		backLinks: digraph.BackLinks,
		settle:    DefaultSettleDelay,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Layout runs one pass over g and writes the result onto the graph.
//
// It waits for the graph root to be measured and for the settle delay, both
// bounded by ctx. The request is then built from a [digraph.Graph.Snapshot],
// so g may keep changing while the pass is in flight; the pass is tagged with
// the snapshot's generation. The engine call itself is not cancelled by ctx.
// Engine errors are returned unmodified and leave the graph untouched. If a
// newer pass has already been applied, the result is discarded and
// ErrSuperseded is returned.
func (l *Layouter) Layout(ctx context.Context, g *digraph.Graph) (*Result, error) {
	rootID := g.Root().ID

	if err := l.awaitRoot(ctx, rootID); err != nil {
		return nil, err
	}

	snap := g.Snapshot()
	generation := snap.Generation()
	asg, err := scope.Assign(snap)
	if err != nil {
		return nil, err
	}
	req := l.builder.Request(snap, asg, l.backLinks(snap))
	req.Options = l.options

	name := engine.NameOf(l.engine)
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, name, snap.NodeCount(), snap.EdgeCount())
	l.logger.Debug("layout pass", "graph", rootID, "nodes", snap.NodeCount(), "edges", snap.EdgeCount(), "generation", generation)

	start := time.Now()
	res, err := l.engine.Layout(context.WithoutCancel(ctx), req)
	duration := time.Since(start)
	hooks.OnLayoutComplete(ctx, name, duration, err)
	if err != nil {
		return nil, err
	}

	applied, err := g.Apply(generation, func(w *digraph.Writer) error {
		return Translate(snap, asg, res, w)
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		hooks.OnLayoutSuperseded(ctx, name, generation)
		l.logger.Debug("layout pass superseded", "graph", rootID, "generation", generation, "applied", g.AppliedGeneration())
		return nil, ErrSuperseded
	}

	out := &Result{Generation: generation, Request: req, Duration: duration}
	if res.ID == SyntheticRootID {
		out.RootEdges = res.Edges
		if len(res.Children) > 0 {
			out.Root = res.Children[0]
		}
	} else {
		out.Root = res
	}
	l.logger.Debug("layout applied", "graph", rootID, "generation", generation, "duration", duration.Round(time.Millisecond))
	return out, nil
}

func (l *Layouter) awaitRoot(ctx context.Context, rootID string) error {
	ready := make(chan struct{})
	var once sync.Once
	cancel := l.rects.OnRect(rootID, func(rect.Size) { once.Do(func() { close(ready) }) })
	defer cancel()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if l.settle <= 0 {
		return nil
	}
	t := time.NewTimer(l.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
