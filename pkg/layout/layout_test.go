package layout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/geo"
	"github.com/matzehuels/statelayout/pkg/rect"
)

// echoEngine lays out every request node at a fixed offset from its parent
// and routes each edge as a single straight section.
func echoEngine() engine.Func {
	return func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		var convert func(n *engine.Node) *engine.ResultNode
		convert = func(n *engine.Node) *engine.ResultNode {
			out := &engine.ResultNode{ID: n.ID, X: 10, Y: 20, Width: n.Width, Height: n.Height}
			for _, e := range n.Edges {
				out.Edges = append(out.Edges, &engine.ResultEdge{
					ID:       e.ID,
					Sections: []geo.Section{{StartPoint: geo.Point{X: 5, Y: 5}, EndPoint: geo.Point{X: 9, Y: 9}}},
					Labels:   []*engine.ResultLabel{{ID: LabelID(e.ID), X: 1, Y: 2}},
				})
			}
			for _, c := range n.Children {
				out.Children = append(out.Children, convert(c))
			}
			return out
		}
		res := convert(req.Root)
		res.X, res.Y = 0, 0
		return res, nil
	}
}

func measured(t *testing.T, g *digraph.Graph) *rect.Store {
	t.Helper()
	s := rect.NewStore()
	rect.MeasureGraph(s, g, rect.DefaultEstimator())
	return s
}

func TestLayoutScenario(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "Q"}, {"Q", "Z"}}, [][2]string{{"Z", "Z"}})
	l := New(echoEngine(), measured(t, g), WithSettleDelay(0))

	res, err := l.Layout(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if res.Root == nil || res.Root.ID != "m" {
		t.Fatalf("result root = %+v, want m", res.Root)
	}
	if res.Generation != g.Generation() {
		t.Errorf("Generation = %d, want %d", res.Generation, g.Generation())
	}

	// m at (10,20), Q at (20,40); the self-loop is routed inside Q.
	geom, _ := g.EdgeGeometry("Z->Z")
	if s := geom.Sections[0]; s.StartPoint != (geo.Point{X: 25, Y: 45}) {
		t.Errorf("Z->Z start = %+v, want (25,45)", s.StartPoint)
	}
	if geom.Label != (geo.Point{X: 21, Y: 42}) {
		t.Errorf("Z->Z label = %+v, want (21,42)", geom.Label)
	}
	if l, ok := g.NodeLayout("Q"); !ok || l.X != 10 || l.Y != 20 {
		t.Errorf("Q layout = %+v, %v", l, ok)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	g := graphOf(t,
		[][2]string{{"m", "P"}, {"P", "X"}, {"P", "Y"}, {"m", "R"}},
		[][2]string{{"X", "Y"}, {"Y", "R"}, {"R", "X"}, {"R", "R"}},
	)
	l := New(echoEngine(), measured(t, g), WithSettleDelay(0))

	snapshot := func() map[string]digraph.EdgeGeometry {
		if _, err := l.Layout(context.Background(), g); err != nil {
			t.Fatal(err)
		}
		out := make(map[string]digraph.EdgeGeometry)
		for _, e := range g.Edges() {
			out[e.ID], _ = g.EdgeGeometry(e.ID)
		}
		return out
	}

	first := snapshot()
	second := snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated passes differ:\n%v\n%v", first, second)
	}
}

func TestLayoutEngineErrorVerbatim(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}}, nil)
	boom := errors.New("elk: cycle in hierarchy")
	e := engine.Func(func(context.Context, *engine.Request) (*engine.ResultNode, error) {
		return nil, boom
	})

	_, err := New(e, measured(t, g), WithSettleDelay(0)).Layout(context.Background(), g)
	if err != boom {
		t.Errorf("Layout error = %v, want the engine's error unmodified", err)
	}
	if _, ok := g.NodeLayout("A"); ok {
		t.Error("failed pass wrote layout records")
	}
}

func TestLayoutWaitsForRoot(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}}, nil)
	store := rect.NewStore()
	called := make(chan struct{}, 1)
	e := engine.Func(func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		called <- struct{}{}
		return echoEngine()(ctx, req)
	})
	l := New(e, store, WithSettleDelay(time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := l.Layout(context.Background(), g)
		done <- err
	}()

	select {
	case <-called:
		t.Fatal("engine called before the root was measured")
	case <-time.After(20 * time.Millisecond):
	}

	rect.MeasureGraph(store, g, rect.DefaultEstimator())
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Layout did not finish after the root was measured")
	}
}

func TestLayoutWaitHonorsContext(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}}, nil)
	l := New(echoEngine(), rect.NewStore())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Layout(ctx, g); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Layout error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestLayoutEngineCallNotCancelled(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var engineErr error
	e := engine.Func(func(ectx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		cancel()
		engineErr = ectx.Err()
		return echoEngine()(ectx, req)
	})

	if _, err := New(e, measured(t, g), WithSettleDelay(0)).Layout(ctx, g); err != nil {
		t.Fatalf("Layout error = %v", err)
	}
	if engineErr != nil {
		t.Errorf("engine context was cancelled: %v", engineErr)
	}
}

func TestLayoutSuperseded(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}}, nil)
	store := measured(t, g)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	slow := engine.Func(func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		once.Do(func() { close(started) })
		<-release
		res, _ := echoEngine()(ctx, req)
		res.Find("A").X = 999
		return res, nil
	})

	stale := make(chan error, 1)
	go func() {
		_, err := New(slow, store, WithSettleDelay(0)).Layout(context.Background(), g)
		stale <- err
	}()
	<-started

	g.Invalidate()
	if _, err := New(echoEngine(), store, WithSettleDelay(0)).Layout(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-stale; !errors.Is(err, ErrSuperseded) {
		t.Errorf("stale pass error = %v, want %v", err, ErrSuperseded)
	}
	if l, _ := g.NodeLayout("A"); l.X != 10 {
		t.Errorf("A.X = %v, stale pass overwrote the newer layout", l.X)
	}
}

func TestLayoutOptions(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}}, nil)
	var got *engine.Request
	e := engine.Func(func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		got = req
		return echoEngine()(ctx, req)
	})

	store := rect.NewStore()
	store.SetRect("m", rect.Size{})

	calls := 0
	l := New(e, store,
		WithSettleDelay(0),
		WithMargin(8),
		WithPortSize(3),
		WithLabelHeight(20),
		WithFallbackSize(rect.Size{Width: 40, Height: 20}),
		WithAspectRatio("1.5"),
		WithOptions(engine.Options{engine.OptDirection: "RIGHT"}),
		WithBackLinks(func(g *digraph.Graph) digraph.BackLinkMap {
			calls++
			return digraph.BackLinks(g)
		}),
	)

	if _, err := l.Layout(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("back-link index queried %d times, want 1", calls)
	}
	a := got.Root.Find("A")
	if a.Width != 40 || a.Height != 20 {
		t.Errorf("fallback size = %vx%v", a.Width, a.Height)
	}
	if a.Ports[0].Width != 3 {
		t.Errorf("port size = %v, want 3", a.Ports[0].Width)
	}
	if got.Root.LayoutOptions[engine.OptAspectRatio] != "1.5" {
		t.Errorf("aspect ratio = %q", got.Root.LayoutOptions[engine.OptAspectRatio])
	}
	if got.Options[engine.OptDirection] != "RIGHT" {
		t.Errorf("request options = %v", got.Options)
	}
	if pad := a.LayoutOptions[engine.OptPadding]; pad != "[top=8, left=8, right=8, bottom=8]" {
		t.Errorf("padding = %q", pad)
	}
}

func TestLayoutWhileGraphGrows(t *testing.T) {
	g := graphOf(t, [][2]string{{"m", "A"}, {"m", "B"}}, [][2]string{{"A", "B"}})
	store := measured(t, g)

	release := make(chan struct{})
	started := make(chan struct{})
	blocked := engine.Func(func(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
		close(started)
		<-release
		return echoEngine()(ctx, req)
	})

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := New(blocked, store, WithSettleDelay(0)).Layout(context.Background(), g)
		done <- outcome{res, err}
	}()
	<-started

	before := g.Generation()
	for i := range 2000 {
		id := fmt.Sprintf("N%d", i)
		if err := g.AddNode("m", digraph.Node{ID: id}); err != nil {
			t.Fatal(err)
		}
		if err := g.AddEdge(digraph.Edge{ID: "A->" + id, Source: "A", Target: id}); err != nil {
			t.Fatal(err)
		}
	}
	close(release)

	out := <-done
	if out.err != nil {
		t.Fatalf("Layout error = %v", out.err)
	}
	if out.res.Generation != before {
		t.Errorf("pass generation = %d, want %d (generation of the laid-out structure)", out.res.Generation, before)
	}
	if got := len(out.res.Request.Root.Children[0].Children); got != 2 {
		t.Errorf("request children = %d, want 2", got)
	}
	if _, ok := g.NodeLayout("N0"); ok {
		t.Error("node added during the pass got a layout record")
	}
	if _, ok := g.NodeLayout("B"); !ok {
		t.Error("B has no layout record")
	}
	if g.AppliedGeneration() != before {
		t.Errorf("AppliedGeneration = %d, want %d", g.AppliedGeneration(), before)
	}
}
