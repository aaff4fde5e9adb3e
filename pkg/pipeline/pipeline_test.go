package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/statelayout/pkg/cache"
	"github.com/matzehuels/statelayout/pkg/chart"
	"github.com/matzehuels/statelayout/pkg/config"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/engine/cached"
	"github.com/matzehuels/statelayout/pkg/engine/graphviz"
	"github.com/matzehuels/statelayout/pkg/engine/remote"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/geo"
	"github.com/matzehuels/statelayout/pkg/layout"
	"github.com/matzehuels/statelayout/pkg/observability"
	"github.com/matzehuels/statelayout/pkg/store"
)

const doorYAML = `
id: door
initial: closed
states:
  - id: closed
    on:
      - event: OPEN
        target: opened
  - id: opened
    entry: [startTimer]
    on:
      - event: CLOSE
        target: closed
`

// echoEngine places every node at (10,20) inside its parent and routes each
// edge as one straight section. The graph root sits at the origin with a size
// of 400x300.
func echoEngine() engine.Func {
	return func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		var convert func(n *engine.Node) *engine.ResultNode
		convert = func(n *engine.Node) *engine.ResultNode {
			out := &engine.ResultNode{ID: n.ID, X: 10, Y: 20, Width: n.Width, Height: n.Height}
			for _, e := range n.Edges {
				out.Edges = append(out.Edges, &engine.ResultEdge{
					ID:       e.ID,
					Sections: []geo.Section{{StartPoint: geo.Point{X: 1, Y: 1}, EndPoint: geo.Point{X: 2, Y: 2}}},
				})
			}
			for _, c := range n.Children {
				out.Children = append(out.Children, convert(c))
			}
			return out
		}
		res := convert(req.Root)
		top := res
		if res.ID == layout.SyntheticRootID && len(res.Children) > 0 {
			top = res.Children[0]
		}
		res.X, res.Y = 0, 0
		top.X, top.Y, top.Width, top.Height = 0, 0, 400, 300
		return res, nil
	}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestRunner(e engine.Engine) *Runner {
	return NewRunner(e, quietLogger(), layout.WithSettleDelay(0))
}

// =============================================================================
// Options
// =============================================================================

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantErr    bool
		wantFormat chart.Format
	}{
		{"no input", Options{}, true, ""},
		{"both inputs", Options{Path: "a.yaml", Data: []byte("{}")}, true, ""},
		{"path detects format", Options{Path: "door.yaml"}, false, chart.FormatYAML},
		{"path keeps explicit format", Options{Path: "door.txt", Format: chart.FormatJSON}, false, chart.FormatJSON},
		{"unknown extension", Options{Path: "door.txt"}, true, ""},
		{"data defaults to json", Options{Data: []byte("{}")}, false, chart.FormatJSON},
		{"bad direction", Options{Data: []byte("{}"), Direction: "SIDEWAYS"}, true, ""},
		{"good direction", Options{Data: []byte("{}"), Direction: "RIGHT"}, false, chart.FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", opts.Format, tt.wantFormat)
			}
			if opts.Timeout != DefaultTimeout {
				t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
			}
		})
	}
}

// =============================================================================
// Execute
// =============================================================================

func TestExecuteInlineData(t *testing.T) {
	r := newTestRunner(echoEngine())
	res, err := r.Execute(context.Background(), Options{Data: []byte(doorYAML), Format: chart.FormatYAML})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Definition.ID != "door" {
		t.Errorf("Definition.ID = %q", res.Definition.ID)
	}
	if res.Stats.NodeCount != 3 || res.Stats.EdgeCount != 2 {
		t.Errorf("stats = %d nodes, %d edges, want 3, 2", res.Stats.NodeCount, res.Stats.EdgeCount)
	}
	l := res.Layout
	if l.Root != "door" || l.Engine != "custom" {
		t.Errorf("Root = %q, Engine = %q", l.Root, l.Engine)
	}
	if l.Width != 400 || l.Height != 300 {
		t.Errorf("size = %vx%v, want 400x300", l.Width, l.Height)
	}
	n, ok := l.Node("door.opened")
	if !ok {
		t.Fatal("door.opened missing from layout")
	}
	if n.Absolute != (geo.Point{X: 10, Y: 20}) {
		t.Errorf("door.opened absolute = %+v", n.Absolute)
	}
	if len(n.Details) != 1 || n.Details[0] != "entry / startTimer" {
		t.Errorf("details = %v", n.Details)
	}
	if len(l.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(l.Edges))
	}
}

func TestExecuteFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.yaml")
	if err := os.WriteFile(path, []byte(doorYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := newTestRunner(echoEngine()).Execute(context.Background(), Options{Path: path})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := res.Graph.Meta()["source"]; got != path {
		t.Errorf("source = %v, want %s", got, path)
	}
}

func TestExecuteMissingFile(t *testing.T) {
	_, err := newTestRunner(echoEngine()).Execute(context.Background(),
		Options{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExecuteInvalidDefinition(t *testing.T) {
	data := []byte(`{"id": "door", "initial": "nowhere", "states": [{"id": "closed"}]}`)
	_, err := newTestRunner(echoEngine()).Execute(context.Background(), Options{Data: data})
	if !errors.Is(err, errors.ErrCodeInvalidDefinition) {
		t.Fatalf("err = %v, want INVALID_DEFINITION", err)
	}
}

func TestExecuteDirection(t *testing.T) {
	var got string
	inner := echoEngine()
	e := engine.Func(func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		got = req.Options.Get(engine.OptDirection, "")
		return inner(ctx, req)
	})

	_, err := newTestRunner(e).Execute(context.Background(),
		Options{Data: []byte(doorYAML), Format: chart.FormatYAML, Direction: "RIGHT"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "RIGHT" {
		t.Errorf("direction = %q, want RIGHT", got)
	}
}

// =============================================================================
// Error Classification
// =============================================================================

func TestEngineErrorsAreClassified(t *testing.T) {
	boom := stderrors.New("boom")
	tests := []struct {
		name string
		err  error
		want errors.Code
	}{
		{"generic", boom, errors.ErrCodeLayoutFailed},
		{"network", fmt.Errorf("%w: connection refused", remote.ErrNetwork), errors.ErrCodeNetwork},
		{"deadline", context.DeadlineExceeded, errors.ErrCodeTimeout},
		{"coded", errors.New(errors.ErrCodeUnsupported, "nope"), errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := engine.Func(func(context.Context, *engine.Request) (*engine.ResultNode, error) {
				return nil, tt.err
			})
			_, err := newTestRunner(e).Execute(context.Background(),
				Options{Data: []byte(doorYAML), Format: chart.FormatYAML})
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("code = %q, want %q (err = %v)", got, tt.want, err)
			}
			if !stderrors.Is(err, tt.err) {
				t.Errorf("cause lost: %v", err)
			}
		})
	}
}

func TestClassifySuperseded(t *testing.T) {
	err := classify(layout.ErrSuperseded)
	if !errors.Is(err, errors.ErrCodeLayoutSuperseded) {
		t.Fatalf("code = %q", errors.GetCode(err))
	}
	if !stderrors.Is(err, layout.ErrSuperseded) {
		t.Error("cause lost")
	}
}

// =============================================================================
// Hooks
// =============================================================================

type loadHooks struct {
	observability.NoopPipelineHooks
	mu        sync.Mutex
	started   []string
	completed int
	lastErr   error
}

func (h *loadHooks) OnLoadStart(_ context.Context, format, _ string) {
	h.mu.Lock()
	h.started = append(h.started, format)
	h.mu.Unlock()
}

func (h *loadHooks) OnLoadComplete(_ context.Context, _, _ string, _ int, _ time.Duration, err error) {
	h.mu.Lock()
	h.completed++
	h.lastErr = err
	h.mu.Unlock()
}

func TestLoadFiresHooks(t *testing.T) {
	hooks := &loadHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	_, err := newTestRunner(echoEngine()).Execute(context.Background(),
		Options{Data: []byte(doorYAML), Format: chart.FormatYAML})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(hooks.started) != 1 || hooks.started[0] != "yaml" || hooks.completed != 1 {
		t.Errorf("started = %v, completed = %d", hooks.started, hooks.completed)
	}
	if hooks.lastErr != nil {
		t.Errorf("lastErr = %v", hooks.lastErr)
	}
}

// =============================================================================
// Factory
// =============================================================================

func TestNewCache(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone
	c, err := NewCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("none backend = %T", c)
	}

	cfg.Cache.Backend = config.CacheFile
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Compress = true
	c, err = NewCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.Compressed); !ok {
		t.Errorf("compressed file backend = %T", c)
	}

	cfg.Cache.Backend = "memcached"
	if _, err := NewCache(cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown backend err = %v", err)
	}
}

func TestNewEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone
	e, c, err := NewEngine(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := e.(*graphviz.Engine); !ok {
		t.Errorf("uncached engine = %T", e)
	}

	cfg.Cache.Backend = config.CacheFile
	cfg.Cache.Dir = t.TempDir()
	cfg.Engine.Name = config.EngineRemote
	cfg.Engine.Endpoint = "http://localhost:1/layout"
	e, c, err = NewEngine(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := e.(*cached.Engine); !ok {
		t.Errorf("cached engine = %T", e)
	}
	if got := engine.NameOf(e); got != "remote" {
		t.Errorf("name = %q, want remote", got)
	}
}

func TestNewRunnerFromConfigDirection(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone
	cfg.Layout.Direction = "LEFT"
	r, c, err := NewRunnerFromConfig(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if got := r.EngineOptions.Get(engine.OptDirection, ""); got != "LEFT" {
		t.Errorf("direction = %q", got)
	}
}

func TestNewStore(t *testing.T) {
	cfg := config.Default()
	s, err := NewStore(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*store.Memory); !ok {
		t.Errorf("store = %T", s)
	}

	cfg.Store.Backend = "sqlite"
	if _, err := NewStore(context.Background(), cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown backend err = %v", err)
	}
}
