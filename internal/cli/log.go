// Package cli implements the statelayout command-line interface.
//
// The commands lay out nested state-machine definitions (JSON, YAML or TOML)
// through the same pipeline the HTTP service uses, and manage the layout
// result cache. Commands are built with cobra; output goes through a
// charmbracelet/log logger and lipgloss styles.
//
// # Commands
//
//   - layout: compute layouts for one or more definitions and write
//     <input>.layout.json next to each of them (or to -o / --stdout)
//   - serve: run the HTTP layout API with Prometheus metrics
//   - cache: clear the layout cache or print its directory
//   - version, completion
//
// # Logging
//
// --verbose switches to debug level. Batch layouts attach a per-file logger
// to the context so pipeline messages carry a file=<input> field.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger. Timestamps are "HH:MM:SS.cc" so pipeline
// stage timings line up when several definitions are laid out at once.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times a batch of layouts.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs the batch summary, e.g. "Laid out 3 of 4 definitions (1.234s)".
// Failures are reported at warn level with the failed count attached.
func (p *progress) done(laid, total int) {
	elapsed := time.Since(p.start).Round(time.Millisecond)
	if laid < total {
		p.logger.Warn(fmt.Sprintf("Laid out %d of %d definitions (%s)", laid, total, elapsed), "failed", total-laid)
		return
	}
	p.logger.Infof("Laid out %d of %d definitions (%s)", laid, total, elapsed)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx; layoutFile picks it up with loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() for contexts that never went through a command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
