package cli

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("saved draft", "nodes", 4)

	line := buf.String()
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(line) {
		t.Errorf("newLogger() line = %q, want a 15:04:05.00 timestamp prefix", line)
	}
	if !strings.Contains(line, "saved draft") || !strings.Contains(line, "nodes=4") {
		t.Errorf("newLogger() line = %q, want message and nodes=4", line)
	}
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		want  []string
		skip  []string
	}{
		{"info", LogInfo, []string{"redraw"}, []string{"debounced"}},
		{"debug", LogDebug, []string{"redraw", "debounced"}, nil},
		{"error", log.ErrorLevel, nil, []string{"redraw", "debounced"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := New(&buf, LogInfo)
			c.SetLogLevel(tt.level)
			c.Logger.Info("redraw")
			c.Logger.Debug("debounced")

			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("level %v: output %q missing %q", tt.level, buf.String(), w)
				}
			}
			for _, s := range tt.skip {
				if strings.Contains(buf.String(), s) {
					t.Errorf("level %v: output %q has %q", tt.level, buf.String(), s)
				}
			}
		})
	}
}

func TestLoggerFromContext(t *testing.T) {
	first := newLogger(io.Discard, LogInfo)
	second := newLogger(io.Discard, LogDebug)

	tests := []struct {
		name string
		ctx  context.Context
		want *log.Logger
	}{
		{"none attached", context.Background(), log.Default()},
		{"attached", withLogger(context.Background(), first), first},
		{"innermost wins", withLogger(withLogger(context.Background(), first), second), second},
	}
	for _, tt := range tests {
		if got := loggerFromContext(tt.ctx); got != tt.want {
			t.Errorf("%s: loggerFromContext() = %p, want %p", tt.name, got, tt.want)
		}
	}
}

func TestCommandsLogThroughContext(t *testing.T) {
	c, _ := newTestCLI(t)
	var buf bytes.Buffer
	c.Logger = newLogger(&buf, LogInfo)

	mustRun(t, c, "layout", writeStory(t, cellar))

	for _, want := range []string{"computed layout", "direction=", "took="} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("layout log missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	c.SetLogLevel(log.ErrorLevel)
	mustRun(t, c, "layout", writeStory(t, cellar))
	if buf.Len() != 0 {
		t.Errorf("layout logged above the error level:\n%s", buf.String())
	}
}

func TestStopwatch(t *testing.T) {
	var buf bytes.Buffer
	startStopwatch(newLogger(&buf, LogInfo)).done("redraw", "formats", "svg")

	for _, want := range []string{"redraw", "formats=svg", "took="} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("done() output %q missing %q", buf.String(), want)
		}
	}
}
