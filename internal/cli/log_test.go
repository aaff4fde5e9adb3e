package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	tests := []struct {
		name        string
		laid, total int
		want        []string
		wantFailed  bool
	}{
		{"all laid out", 2, 2, []string{"INFO", "Laid out 2 of 2 definitions"}, false},
		{"some failed", 1, 3, []string{"WARN", "Laid out 1 of 3 definitions", "failed=2"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newProgress(newLogger(&buf, log.InfoLevel)).done(tt.laid, tt.total)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output = %q, want %q", buf.String(), w)
				}
			}
			if got := strings.Contains(buf.String(), "failed="); got != tt.wantFailed {
				t.Errorf("failed field present = %v, want %v", got, tt.wantFailed)
			}
		})
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	fileLogger := newLogger(&buf, log.InfoLevel).With("file", "door.yaml")

	ctx := withLogger(context.Background(), fileLogger)
	loggerFromContext(ctx).Info("wrote layout")
	if !bytes.Contains(buf.Bytes(), []byte("file=door.yaml")) {
		t.Errorf("output = %q, want file field", buf.String())
	}

	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default")
	}
}
