package logutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel(loud) error = nil")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("dispatch_poll_error", "update_id", 7)
	if !strings.Contains(buf.String(), `"msg":"dispatch_poll_error"`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, err := New(Config{Format: "xml"}, &buf); err == nil {
		t.Fatalf("New(xml) error = nil")
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil)).With("trace_id", "abc")
	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx, nil).Info("moderation_check")
	if !strings.Contains(buf.String(), "trace_id=abc") {
		t.Fatalf("context logger not used: %s", buf.String())
	}
	fallback := Discard()
	if FromContext(context.Background(), fallback) != fallback {
		t.Fatalf("FromContext() did not return fallback")
	}
}
