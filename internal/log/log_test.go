package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFields(t *testing.T) {
	got := fields("a", 1, 2, "skipped", "b", "x", "dangling")
	if len(got) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(got), got)
	}
	if got["a"] != "1" || got["b"] != "x" {
		t.Errorf("unexpected fields: %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" ERROR ", LevelError},
		{"info", LevelInfo},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLevel(LevelInfo)

	SetLevel(LevelError)
	Info("hidden line")
	Error("visible line", errors.New("boom"), "component", "test")

	out := buf.String()
	if strings.Contains(out, "hidden line") {
		t.Errorf("info line should be filtered at error level: %q", out)
	}
	if !strings.Contains(out, "visible line") || !strings.Contains(out, "boom") || !strings.Contains(out, "component=test") {
		t.Errorf("error line missing fields: %q", out)
	}
}
