package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsRecordingNilSafe(t *testing.T) {
	ctx := context.Background()

	// Zero-value recorder must swallow every call.
	metrics := &PrometheusMetrics{}

	metrics.RecordTemplateFill(ctx, "clinical_summary", nil)
	metrics.RecordTemplateFill(ctx, "clinical_summary", errors.New("boom"))
	metrics.RecordGeneration(ctx, "clinical_summary", "text", 100*time.Millisecond, nil)
	metrics.RecordLLMCall(ctx, "gpt-4o", 500*time.Millisecond, 100, 50, nil)
	metrics.RecordEmbedding(ctx, "text-embedding-3-small", 80*time.Millisecond, nil)
	metrics.RecordGraphOperation(ctx, "get_concept", 20*time.Millisecond, nil)
	metrics.RecordHTTPRequest(ctx, "GET", "/api/templates", 200, 5*time.Millisecond, 0, 128)
}

func TestInitMetrics_Disabled(t *testing.T) {
	metrics, err := InitMetrics(context.Background(), MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	if metrics == nil {
		t.Fatal("expected non-nil recorder when disabled")
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from disabled metrics handler, got %d", rec.Code)
	}
}

func TestInitMetrics_Enabled(t *testing.T) {
	cfg := MetricsConfig{Enabled: true, Namespace: "ontomed"}
	cfg.SetDefaults()

	metrics, err := InitMetrics(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}

	ctx := context.Background()
	metrics.RecordTemplateFill(ctx, "clinical_summary", nil)
	metrics.RecordLLMCall(ctx, "gpt-4o", 300*time.Millisecond, 10, 5, nil)
	metrics.RecordHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond, 0, 2)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ontomed_template_fills_total") {
		t.Error("expected template fill counter in scrape output")
	}
}

func TestNoopMetrics(t *testing.T) {
	ctx := context.Background()
	noop := NoopMetrics{}

	noop.RecordTemplateFill(ctx, "x", nil)
	noop.RecordGeneration(ctx, "x", "text", time.Millisecond, nil)
	noop.RecordLLMCall(ctx, "m", time.Millisecond, 1, 1, nil)
	noop.RecordEmbedding(ctx, "m", time.Millisecond, nil)
	noop.RecordGraphOperation(ctx, "op", time.Millisecond, nil)
	noop.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond, 0, 0)

	rec := httptest.NewRecorder()
	noop.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from noop handler, got %d", rec.Code)
	}
}

func TestGlobalMetrics(t *testing.T) {
	ctx := context.Background()

	if GetGlobalMetrics() == nil {
		t.Error("expected noop fallback before SetGlobalMetrics")
	}

	SetGlobalMetrics(NoopMetrics{})
	retrieved := GetGlobalMetrics()
	if retrieved == nil {
		t.Fatal("expected non-nil metrics after SetGlobalMetrics")
	}
	retrieved.RecordTemplateFill(ctx, "x", nil)
}

func TestNoopManager(t *testing.T) {
	m := NoopManager()

	tracer := m.GetTracer("test")
	_, span := tracer.Start(context.Background(), "test_span")
	span.End()

	m.GetMetrics().RecordTemplateFill(context.Background(), "x", nil)

	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown failed: %v", err)
	}
}

func TestInitGlobalTracer_Disabled(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitGlobalTracer failed: %v", err)
	}
	if tp == nil {
		t.Fatal("expected noop tracer provider")
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	if cfg.Tracing.ServiceName != "ontomed" {
		t.Errorf("expected service name ontomed, got %q", cfg.Tracing.ServiceName)
	}
	if cfg.Tracing.SamplingRate != 1.0 {
		t.Errorf("expected sampling rate 1.0, got %f", cfg.Tracing.SamplingRate)
	}
	if cfg.Tracing.Exporter != "otlp" {
		t.Errorf("expected otlp exporter, got %q", cfg.Tracing.Exporter)
	}
	if !cfg.Tracing.IsInsecure() {
		t.Error("expected insecure default")
	}
	if cfg.Tracing.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Tracing.Timeout)
	}
	if cfg.Metrics.Endpoint != "/metrics" {
		t.Errorf("expected /metrics endpoint, got %q", cfg.Metrics.Endpoint)
	}
	if cfg.Metrics.Namespace != "ontomed" {
		t.Errorf("expected ontomed namespace, got %q", cfg.Metrics.Namespace)
	}
}

func TestConfig_Validate(t *testing.T) {
	var disabled Config
	disabled.SetDefaults()
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}

	badRate := Config{Tracing: TracingConfig{Enabled: true, Endpoint: "localhost:4317", Exporter: "otlp", SamplingRate: 2.0}}
	if err := badRate.Validate(); err == nil {
		t.Error("expected error for sampling_rate > 1")
	}

	badExporter := Config{Tracing: TracingConfig{Enabled: true, Endpoint: "localhost:4317", Exporter: "carrier-pigeon", SamplingRate: 0.5}}
	if err := badExporter.Validate(); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

type captureRecorder struct {
	NoopMetrics
	method string
	path   string
	status int
}

func (c *captureRecorder) RecordHTTPRequest(_ context.Context, method, path string, statusCode int, _ time.Duration, _, _ int64) {
	c.method = method
	c.path = path
	c.status = statusCode
}

func TestHTTPMiddleware(t *testing.T) {
	capture := &captureRecorder{}
	handler := HTTPMiddleware(nil, capture)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/templates/t/fill", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if capture.method != "POST" || capture.path != "/api/templates/t/fill" || capture.status != 201 {
		t.Errorf("unexpected capture: %+v", capture)
	}
}

func TestHTTPMiddleware_RouteLabeler(t *testing.T) {
	capture := &captureRecorder{}
	labeler := func(r *http.Request) string { return "/api/templates/{templateID}" }
	handler := HTTPMiddleware(nil, capture, labeler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/templates/t-123", nil))

	if capture.path != "/api/templates/{templateID}" {
		t.Errorf("expected pattern label, got %q", capture.path)
	}
}
