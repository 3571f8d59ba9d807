package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger

	return buf.String()
}

func TestLogHelpers(t *testing.T) {
	out := captureLogOutput(func() {
		Debug("debug message", "k", "v")
		Info("info message")
		Warn("warn message")
		Error("error message")
	})

	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestParseEvent(t *testing.T) {
	out := captureLogOutput(func() {
		ParseEvent("ann", "notes.ann", 5, 2)
	})
	for _, want := range []string{"annotation_parsed", `"format":"ann"`, `"entities":5`, `"relations":2`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in %s", want, out)
		}
	}
}

func TestParseError(t *testing.T) {
	out := captureLogOutput(func() {
		ParseError("con", "notes.con", errors.New("bad token position"))
	})
	for _, want := range []string{"annotation_parse_error", "bad token position", `"path":"notes.con"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in %s", want, out)
		}
	}
}

func TestCompareEvent(t *testing.T) {
	out := captureLogOutput(func() {
		CompareEvent("difference", 10, 8, 3)
	})
	for _, want := range []string{"annotation_compare", `"operation":"difference"`, `"result_size":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in %s", want, out)
		}
	}
}

func TestStoreEvent(t *testing.T) {
	out := captureLogOutput(func() {
		StoreEvent("import", "record-17")
	})
	for _, want := range []string{"annotation_store", `"doc_id":"record-17"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in %s", want, out)
		}
	}
}

func TestInitLogger(t *testing.T) {
	// InitLogger must leave a usable logger for every level/format combination.
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, Level(99)} {
		for _, format := range []Format{FormatJSON, FormatText} {
			InitLogger(level, format)
			if GetLogger() == nil {
				t.Fatalf("GetLogger() = nil after InitLogger(%d, %d)", level, format)
			}
		}
	}
	InitLogger(LevelInfo, FormatJSON)
}
