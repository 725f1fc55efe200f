package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"disabled tracing", Config{ServiceName: "test-service"}, false},
		{
			name: "enabled with always sampler",
			config: Config{
				Enabled:  true,
				Sampler:  "always",
				Endpoint: "localhost:4317",
				Insecure: true,
				Timeout:  time.Second,
			},
		},
		{
			name:   "enabled with ratio sampler",
			config: Config{Enabled: true, Sampler: "ratio", SampleRatio: 0.5, Endpoint: "localhost:4317", Insecure: true},
		},
		{"invalid sampler", Config{Enabled: true, Sampler: "sometimes"}, true},
		{"invalid ratio", Config{Enabled: true, Sampler: "ratio", SampleRatio: 2}, true},
		{"unsupported exporter", Config{Enabled: true, Exporter: "zipkin"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer tracer.Shutdown(context.Background())

			if tracer.Enabled() != tt.config.Enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
			}
			_, span := tracer.Start(context.Background(), "op")
			span.End()
		})
	}
}

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(Config{ServiceName: "test"}, exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() failed: %v", err)
	}
	t.Cleanup(func() { tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestSpanAttributes(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "provider.chat")
	if TraceID(ctx) == "" {
		t.Error("expected a trace id in context")
	}
	SetProviderAttributes(span, "groq", "groq/llama")
	SetRequestAttributes(span, "req-1", true)
	SetRetryAttribute(span, 2)
	SetTokenAttributes(span, 10, 5)
	SetErrorKind(span, "rate_limited")
	AddEvent(span, "key_rotated", attribute.Int("key_index", 1))
	span.End()

	testTracerFlush(t, tracer)
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrs := attrMap(spans[0].Attributes)
	if attrs[AttrProvider].AsString() != "groq" || attrs[AttrModel].AsString() != "groq/llama" {
		t.Errorf("unexpected provider attributes %v", attrs)
	}
	if attrs[AttrRequestID].AsString() != "req-1" || !attrs[AttrStream].AsBool() {
		t.Errorf("unexpected request attributes %v", attrs)
	}
	if attrs[AttrRetryCount].AsInt64() != 2 || attrs[AttrTokensTotal].AsInt64() != 15 {
		t.Errorf("unexpected counters %v", attrs)
	}
	if attrs[AttrErrorKind].AsString() != "rate_limited" {
		t.Errorf("expected error kind, got %v", attrs[AttrErrorKind])
	}
	if len(spans[0].Events) != 1 || spans[0].Events[0].Name != "key_rotated" {
		t.Errorf("expected key_rotated event, got %v", spans[0].Events)
	}
}

func TestSetErrorAndStatus(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	_, failed := tracer.Start(context.Background(), "failed")
	err := errors.New("upstream exploded")
	SetError(failed, err)
	SetStatus(failed, err)
	failed.End()

	_, ok := tracer.Start(context.Background(), "ok")
	SetError(ok, nil)
	SetStatus(ok, nil)
	ok.End()

	testTracerFlush(t, tracer)
	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "upstream exploded" {
		t.Errorf("unexpected failed status %+v", spans[0].Status)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected recorded error event, got %v", spans[0].Events)
	}
	if spans[1].Status.Code != codes.Ok || len(spans[1].Events) != 0 {
		t.Errorf("unexpected ok span %+v", spans[1].Status)
	}
}

func TestPropagation(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "outgoing")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	var gotTrace string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/status/models", nil)
	req.Header = headers
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotTrace != TraceID(ctx) {
		t.Errorf("expected extracted trace %s, got %s", TraceID(ctx), gotTrace)
	}
	if rec.Header().Get("X-Trace-ID") != TraceID(ctx) {
		t.Errorf("expected X-Trace-ID header, got %q", rec.Header().Get("X-Trace-ID"))
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.25, false},
		{SamplerRatio, -0.1, true},
		{"random", 0, true},
	}

	for _, tt := range tests {
		_, err := createSampler(tt.strategy, tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
		}
	}

	if err := ValidateSampler(SamplerRatio, 1.5); err == nil {
		t.Error("expected invalid ratio to be rejected")
	}
	if err := ValidateSampler(SamplerAlways, 7); err != nil {
		t.Errorf("ratio should be ignored for always, got %v", err)
	}
}

func testTracerFlush(t *testing.T, tracer *Tracer) {
	t.Helper()
	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() failed: %v", err)
	}
}
