package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/annapurna-labs/annapurna/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewReturnsWorkingLogger(t *testing.T) {
	log, closer := New(config.Logging{Level: "info", Service: "test"})
	defer closer.Close()
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
	// Must not panic.
	log.Info("hello")
}

func TestAsyncHandlerDeliversRecords(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	h := NewAsyncHandler(inner, 16, 1)

	log := slog.New(h)
	log.Info("queued message", "n", 1)
	h.Close()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "queued message" {
		t.Errorf("expected msg %q, got %v", "queued message", rec["msg"])
	}
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingHandler{release: block}
	h := NewAsyncHandler(inner, 1, 1)

	log := slog.New(h)
	for i := 0; i < 50; i++ {
		log.Info("flood")
	}
	close(block)
	h.Close()

	if h.Dropped() == 0 {
		t.Error("expected some dropped records with a full buffer")
	}
}

type blockingHandler struct {
	release chan struct{}
}

func (b *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (b *blockingHandler) Handle(context.Context, slog.Record) error {
	<-b.release
	return nil
}
func (b *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return b }
func (b *blockingHandler) WithGroup(string) slog.Handler      { return b }

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty for bare context, got %q", got)
	}
}
