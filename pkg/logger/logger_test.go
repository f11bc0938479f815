package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(Config{
		Level:    level,
		Colorize: false,
		ShowTime: false,
		Output:   buf,
	})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)
	log.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message leaked through WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing WARN line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing ERROR line: %q", out)
	}
}

func TestNamedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	root := newTestLogger(&buf, DEBUG)
	child := root.Named("beat").Named("cache")

	child.Debugf("miss for %s", "intro_120.json")

	line := strings.TrimSpace(buf.String())
	if line != "[DEBUG] [beat.cache] miss for intro_120.json" {
		t.Errorf("unexpected line %q", line)
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)

	code := -1
	log.exit = func(c int) { code = c }
	log.Fatalf("cannot continue")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"WARNING": WARN,
		"error":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
