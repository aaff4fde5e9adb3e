// Package pipeline runs the complete load → build → measure → layout →
// export sequence for one statechart definition.
//
// This package implements the sequence that both the CLI and the HTTP API
// use, so the two entry points cannot drift apart.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: decode and validate a definition (JSON, YAML or TOML) and build
//     the nested graph
//  2. Measure: estimate every node, content block and label size into a
//     per-run rect store
//  3. Layout: run one layout pass through the configured engine
//  4. Export: flatten the records into the [graph.Layout] wire format
//
// # Usage
//
//	eng, closeEngine, err := pipeline.NewEngine(cfg, logger)
//	defer closeEngine()
//	runner := pipeline.NewRunner(eng, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Path: "door.yaml"})
//	graph.WriteLayoutFile(result.Layout, "door.layout.json")
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/statelayout/pkg/chart"
	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/graph"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultTimeout bounds the wait for measurements and the settle delay.
const DefaultTimeout = time.Minute

// ValidDirections is the set of supported layout directions.
var ValidDirections = map[string]bool{
	"DOWN":  true,
	"UP":    true,
	"LEFT":  true,
	"RIGHT": true,
}

// =============================================================================
// Options
// =============================================================================

// Options describes one pipeline run. The definition comes from Path, or from
// Data decoded as Format.
type Options struct {
	Path   string       `json:"path,omitempty"`
	Data   []byte       `json:"-"`
	Format chart.Format `json:"format,omitempty"`
	Name   string       `json:"name,omitempty"`

	Direction string        `json:"direction,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`

	// Logger overrides the runner's logger for this run.
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks the input source and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	switch {
	case o.Path == "" && len(o.Data) == 0:
		return errors.New(errors.ErrCodeInvalidInput, "no definition given")
	case o.Path != "" && len(o.Data) > 0:
		return errors.New(errors.ErrCodeInvalidInput, "give either a path or inline data, not both")
	case o.Path != "":
		if err := errors.ValidatePath(o.Path); err != nil {
			return err
		}
		if o.Format == "" {
			f, err := chart.DetectFormat(o.Path)
			if err != nil {
				return err
			}
			o.Format = f
		}
	case o.Format == "":
		o.Format = chart.FormatJSON
	}
	if o.Direction != "" && !ValidDirections[o.Direction] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid direction %q", o.Direction)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result holds everything one run produced.
type Result struct {
	Definition *chart.Definition
	Graph      *digraph.Graph
	Layout     graph.Layout
	Stats      Stats
}

// Stats records sizes and per-stage timings.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	LoadTime    time.Duration
	MeasureTime time.Duration
	LayoutTime  time.Duration
	EngineTime  time.Duration
}
