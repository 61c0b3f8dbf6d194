package telemetry

import (
	"context"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init disabled: %v", err)
	}
	if p.Tracer == nil || p.Meter == nil {
		t.Fatal("expected noop tracer and meter")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestInit_NoneExporter(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Shutdown(context.Background())

	if p.TracerProvider == nil {
		t.Fatal("expected TracerProvider")
	}

	_, span := StartSpan(context.Background(), p.Tracer, "test", AttrVideoID.String("abc"))
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span with a valid context")
	}
	span.End()
}

func TestInit_StdoutExporter(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: ExporterStdout})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestInit_UnknownExporter(t *testing.T) {
	if _, err := Init(context.Background(), Config{Enabled: true, Exporter: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestNewMetrics(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Shutdown(context.Background())

	m, err := NewMetrics(p.Meter)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if m.RequestDuration == nil || m.LLMCallDuration == nil || m.ClassifierFallbacks == nil ||
		m.TranscriptFailures == nil || m.SessionsCleaned == nil {
		t.Errorf("missing instrument in %+v", m)
	}

	ctx := context.Background()
	m.RequestDuration.Record(ctx, 0.5)
	m.SessionsCleaned.Add(ctx, 2)
}

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics()
	if m == nil || m.ClassifierFallbacks == nil {
		t.Fatal("expected noop instruments")
	}
	m.ClassifierFallbacks.Add(context.Background(), 1)
}
