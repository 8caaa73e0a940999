package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No request ID set
	if id := RequestID(ctx); id != "" {
		t.Errorf("expected empty request id, got %q", id)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "optimize-123")
	if id := RequestID(ctx); id != "optimize-123" {
		t.Errorf("expected 'optimize-123', got %q", id)
	}
}

func TestNewRequestID(t *testing.T) {
	ts := time.Date(2025, 3, 10, 9, 15, 0, 987654321, time.UTC)
	id := NewRequestID("simulate", ts)

	if id == "" {
		t.Fatal("expected non-empty request id")
	}
	if !strings.HasPrefix(id, "simulate-") {
		t.Errorf("expected request id to start with 'simulate-', got %s", id)
	}
	if !strings.Contains(id, "987654321") {
		t.Errorf("expected request id to contain nanoseconds, got %s", id)
	}
}

func TestWithRequest(t *testing.T) {
	ctx := context.Background()

	attrs := WithRequest(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no request id, got %v", attrs)
	}

	ctx = WithRequestID(ctx, "abc-123")
	attrs = WithRequest(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with request id set")
	}
}
