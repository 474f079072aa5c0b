package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "oracle-arb", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "band computed", "upper", "71.27225988")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v\n%s", err, buf.String())
	}

	checks := map[string]string{
		"msg":      "band computed",
		"service":  "oracle-arb",
		"upper":    "71.27225988",
		"trace_id": "abc123",
		"level":    "INFO",
	}
	for k, want := range checks {
		if got, _ := rec[k].(string); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}

	file, _ := rec["file"].(string)
	if !strings.HasPrefix(file, "logger_test.go:") {
		t.Errorf("file = %q, want caller location in logger_test.go", file)
	}
}

func TestLogger_FiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "oracle-arb", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %s", buf.String())
	}

	log.Error(context.Background(), "shown")
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("expected error record, got %s", buf.String())
	}
}

func TestLogger_NoTraceIDWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "oracle-arb", nil)

	log.Debug(context.Background(), "no span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace_id in %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
