package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestStartSpanNestsUnderRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")

	ctx, parent := StartSpan(ctx, "outer")
	if TraceIDFromContext(ctx) != "req-1" {
		t.Fatalf("expected trace id to reuse request id, got %q", TraceIDFromContext(ctx))
	}
	parentID := SpanIDFromContext(ctx)

	child, span := StartSpan(ctx, "inner")
	if SpanIDFromContext(child) == parentID {
		t.Fatal("expected child span id to differ from parent")
	}
	span.End(errors.New("boom"))
	parent.End(nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected two log records, got %d: %s", len(lines), buf.String())
	}

	var record map[string]any
	if err := json.Unmarshal(lines[0], &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["level"] != "ERROR" || record["span_name"] != "inner" || record["parent_span_id"] != parentID {
		t.Fatalf("unexpected child record: %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	if err != nil || level != slog.LevelWarn {
		t.Fatalf("expected warn level, got %v (%v)", level, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
