// Package pkg provides the core libraries for statelayout, a layout service
// for hierarchical state machine diagrams.
//
// # Overview
//
// A statechart nests states inside composite states, and its transitions may
// cross any number of nesting levels. Layered layout engines expect every edge
// to be declared in the deepest container that holds both of its ends, so
// statelayout scopes each transition to the lowest common ancestor of its
// endpoints, builds a request tree the engine understands, and translates the
// engine's answer back into absolute coordinates.
//
// # Architecture
//
// The typical data flow:
//
//	Definition (JSON / YAML / TOML)
//	         ↓
//	    [chart] package (decode, validate, build the nested graph)
//	         ↓
//	    [digraph] package (node arena, edges, layout records)
//	         ↓
//	    [scope] package (assign each edge to its lowest common ancestor)
//	         ↓
//	    [layout] package (request tree → engine → translated records)
//	         ↓
//	    [graph] package (exported layout document)
//
// # Quick Start
//
//	def, g, _ := chart.Load("door.yaml")
//	rects := rect.NewStore()
//	rect.MeasureGraph(rects, g, rect.DefaultEstimator())
//
//	l := layout.New(graphviz.New(), rects)
//	if _, err := l.Layout(ctx, g); err != nil {
//	    return err
//	}
//	out, _ := graph.Export(g, "graphviz")
//	graph.WriteLayoutFile(out, "door.layout.json")
//
// [pipeline] wraps exactly this sequence for the CLI and the HTTP API.
//
// # Main Packages
//
// ## Core Domain Logic
//
// [digraph] - Nested directed graph: a node arena with one parent per node,
// edges owned by the level that declared them, and generation-guarded layout
// records.
//
// [scope] - Lowest-common-ancestor edge scoping. Self-loops stay at their
// node; edges between nested nodes are scoped to the outer one.
//
// [rect] - Size measurements with change notification, plus a text-based
// estimator for headless use.
//
// [layout] - Request tree construction (ports, content placeholders, label
// placeholders), the readiness wait, and coordinate translation.
//
// [engine] - The engine interface and request/result trees. Implementations:
// [engine/graphviz] (in-process), [engine/remote] (HTTP, ELK compatible) and
// [engine/cached] (result cache decorator).
//
// ## Input and Output
//
// [chart] - Statechart definitions and target resolution.
//
// [graph] - The exported layout document.
//
// ## Infrastructure
//
// [pipeline] - Load → measure → layout → export, shared by CLI and API.
//
// [config] - TOML configuration with environment overrides.
//
// [cache] - Byte caches (file, Redis, null, snappy-compressed) and key schemes.
//
// [store] - Layout document storage (memory, MongoDB).
//
// [observability] - Hook interfaces for metrics without a metrics dependency.
//
// [errors] - Coded errors and their HTTP statuses.
//
// # Testing
//
//	go test ./pkg/...             # All library tests
//	go test ./pkg/scope/...       # Specific package
//	go test -run Example ./pkg/...
//
// [chart]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/chart
// [digraph]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/digraph
// [scope]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/scope
// [rect]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/rect
// [layout]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/layout
// [engine]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/engine
// [engine/graphviz]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/engine/graphviz
// [engine/remote]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/engine/remote
// [engine/cached]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/engine/cached
// [graph]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/graph
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/statelayout/pkg/errors
package pkg
