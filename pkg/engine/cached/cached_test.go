package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/statelayout/pkg/cache"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/observability"
)

type countingEngine struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingEngine) Name() string { return "counting" }

func (c *countingEngine) Layout(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	return &engine.ResultNode{ID: req.Root.ID, Width: 100, Height: 50}, nil
}

type recordingHooks struct {
	mu                sync.Mutex
	hits, misses, set int
}

func (r *recordingHooks) OnCacheHit(context.Context, string) {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
}

func (r *recordingHooks) OnCacheMiss(context.Context, string) {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}

func (r *recordingHooks) OnCacheSet(context.Context, string, int) {
	r.mu.Lock()
	r.set++
	r.mu.Unlock()
}

func request(id string) *engine.Request {
	return &engine.Request{Root: &engine.Node{ID: id, Width: 10, Height: 10}}
}

func newFileCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return c
}

func TestCachedHitSkipsEngine(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	inner := &countingEngine{}
	e := New(inner, newFileCache(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := e.Layout(ctx, request("root"))
		if err != nil {
			t.Fatalf("Layout #%d: %v", i, err)
		}
		if res.ID != "root" || res.Width != 100 {
			t.Errorf("Layout #%d = %+v", i, res)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("engine called %d times, want 1", n)
	}
	if hooks.hits != 2 || hooks.misses != 1 || hooks.set != 1 {
		t.Errorf("hooks = hits %d misses %d set %d, want 2/1/1", hooks.hits, hooks.misses, hooks.set)
	}
}

func TestCachedDistinctRequests(t *testing.T) {
	inner := &countingEngine{}
	e := New(inner, newFileCache(t))
	ctx := context.Background()

	e.Layout(ctx, request("a"))
	e.Layout(ctx, request("b"))
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("engine called %d times, want 2", n)
	}
}

func TestCachedErrorNotStored(t *testing.T) {
	boom := errors.New("engine exploded")
	inner := &countingEngine{err: boom}
	e := New(inner, newFileCache(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := e.Layout(ctx, request("root")); err != boom {
			t.Fatalf("Layout error = %v, want %v", err, boom)
		}
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("engine called %d times, want 2 (errors must not be cached)", n)
	}
}

func TestCachedCoalescesConcurrentCalls(t *testing.T) {
	inner := &countingEngine{delay: 100 * time.Millisecond}
	e := New(inner, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Layout(context.Background(), request("root")); err != nil {
				t.Errorf("Layout: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("engine called %d times, want 1", n)
	}
}

func TestCachedResultsAreIndependent(t *testing.T) {
	e := New(&countingEngine{}, newFileCache(t))
	ctx := context.Background()

	a, _ := e.Layout(ctx, request("root"))
	a.Width = 1
	b, _ := e.Layout(ctx, request("root"))
	if b.Width != 100 {
		t.Errorf("second result width = %v, want 100", b.Width)
	}
}

func TestCachedName(t *testing.T) {
	if got := New(&countingEngine{}, nil).Name(); got != "counting" {
		t.Errorf("Name = %q, want counting", got)
	}
}
