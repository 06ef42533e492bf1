package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_TextLevels(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, "warn", "text")
	log.Info("hidden")
	log.Warn("shown", "rows", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}

	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "rows=3") {
		t.Errorf("warn record missing: %s", out)
	}

	log.SetLevel("debug")
	log.Debug("now visible")

	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel did not lower the level")
	}
}

func TestNew_JSONWith(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, "info", "json").With("run_id", "abc")
	log.Info("converted")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json record does not parse: %v (%s)", err, buf.String())
	}

	if rec["run_id"] != "abc" || rec["msg"] != "converted" {
		t.Errorf("record = %v", rec)
	}
}
