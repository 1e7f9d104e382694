package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestFieldConstructors(t *testing.T) {
	err := errors.New("boom")
	cases := []struct {
		field Field
		key   string
		value interface{}
	}{
		{String("job", "abc"), "job", "abc"},
		{Int("pages", 3), "pages", 3},
		{Int64("bytes", 42), "bytes", int64(42)},
		{Error("err", err), "err", err},
	}
	for _, c := range cases {
		if c.field.Key() != c.key {
			t.Fatalf("unexpected key: %s", c.field.Key())
		}
		if c.field.Value() != c.value {
			t.Fatalf("unexpected value for %s: %v", c.key, c.field.Value())
		}
	}
}

func TestSlogLoggerEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	log := NewSlogLogger(base).With(String("job", "j1"))

	log.Info("page extracted", Int("page", 2))

	out := buf.String()
	if !strings.Contains(out, "page extracted") {
		t.Fatalf("missing message: %s", out)
	}
	if !strings.Contains(out, "job=j1") || !strings.Contains(out, "page=2") {
		t.Fatalf("missing fields: %s", out)
	}
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.JobsSubmitted.Inc()
	m.JobsInProgress.Set(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"scan2ebook_jobs_submitted_total", "scan2ebook_jobs_in_progress"} {
		if !names[want] {
			t.Fatalf("metric %s not registered", want)
		}
	}
}
