package graphviz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/statelayout/pkg/engine"
)

// jsonFormat is Graphviz's JSON output with layout attributes.
const jsonFormat graphviz.Format = "json"

// Engine lays out requests with an embedded Graphviz (dot).
// The zero value is ready to use.
type Engine struct{}

// New returns a Graphviz engine.
func New() *Engine { return &Engine{} }

// Name identifies the engine in logs and metrics.
func (*Engine) Name() string { return "graphviz" }

// Layout implements engine.Engine.
func (e *Engine) Layout(ctx context.Context, req *engine.Request) (*engine.ResultNode, error) {
	if req == nil || req.Root == nil {
		return nil, fmt.Errorf("graphviz: empty request")
	}
	data, err := Render(ctx, ToDOT(req))
	if err != nil {
		return nil, err
	}
	return Decode(req, data)
}

// Render lays out DOT source and returns Graphviz's JSON output.
func Render(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, jsonFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var _ engine.Engine = (*Engine)(nil)
