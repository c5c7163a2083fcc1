package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusMetrics records OntoMed metrics through the OpenTelemetry metric
// API and exposes them on a Prometheus registry.
//
// The zero value is a valid no-op recorder: every Record method is nil-safe
// so callers never need to guard metric calls.
type PrometheusMetrics struct {
	fillsTotal      metric.Int64Counter
	fillErrorsTotal metric.Int64Counter

	generationDuration    metric.Float64Histogram
	generationsTotal      metric.Int64Counter
	generationErrorsTotal metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrorsTotal  metric.Int64Counter

	embeddingDuration    metric.Float64Histogram
	embeddingErrorsTotal metric.Int64Counter

	graphDuration    metric.Float64Histogram
	graphErrorsTotal metric.Int64Counter

	httpDuration      metric.Float64Histogram
	httpRequestsTotal metric.Int64Counter

	handler http.Handler
}

// InitMetrics builds the metrics recorder for the given config.
// When metrics are disabled an empty, no-op recorder is returned.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	registry := prometheus.NewRegistry()
	registerer := prometheus.Registerer(registry)
	if len(cfg.ConstLabels) > 0 {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels(cfg.ConstLabels), registry)
	}

	promExporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)
	meter := meterProvider.Meter(DefaultServiceName)

	prefix := cfg.Namespace
	if cfg.Subsystem != "" {
		prefix = prefix + "_" + cfg.Subsystem
	}

	m := &PrometheusMetrics{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	if m.fillsTotal, err = meter.Int64Counter(
		prefix+"_template_fills_total",
		metric.WithDescription("Total template fills"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fills counter: %w", err)
	}

	if m.fillErrorsTotal, err = meter.Int64Counter(
		prefix+"_template_fill_errors_total",
		metric.WithDescription("Total failed template fills"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fill errors counter: %w", err)
	}

	if m.generationDuration, err = meter.Float64Histogram(
		prefix+"_generation_duration_seconds",
		metric.WithDescription("Content generation duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}

	if m.generationsTotal, err = meter.Int64Counter(
		prefix+"_generations_total",
		metric.WithDescription("Total content generations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generations counter: %w", err)
	}

	if m.generationErrorsTotal, err = meter.Int64Counter(
		prefix+"_generation_errors_total",
		metric.WithDescription("Total failed content generations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation errors counter: %w", err)
	}

	if m.llmDuration, err = meter.Float64Histogram(
		prefix+"_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	if m.llmInputTokens, err = meter.Int64Counter(
		prefix+"_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the LLM"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	if m.llmOutputTokens, err = meter.Int64Counter(
		prefix+"_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from the LLM"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	if m.llmErrorsTotal, err = meter.Int64Counter(
		prefix+"_llm_errors_total",
		metric.WithDescription("Total LLM errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	if m.embeddingDuration, err = meter.Float64Histogram(
		prefix+"_embedding_duration_seconds",
		metric.WithDescription("Embedding request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create embedding duration histogram: %w", err)
	}

	if m.embeddingErrorsTotal, err = meter.Int64Counter(
		prefix+"_embedding_errors_total",
		metric.WithDescription("Total embedding errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create embedding errors counter: %w", err)
	}

	if m.graphDuration, err = meter.Float64Histogram(
		prefix+"_graph_operation_duration_seconds",
		metric.WithDescription("Graph store operation duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create graph duration histogram: %w", err)
	}

	if m.graphErrorsTotal, err = meter.Int64Counter(
		prefix+"_graph_errors_total",
		metric.WithDescription("Total graph store errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create graph errors counter: %w", err)
	}

	if m.httpDuration, err = meter.Float64Histogram(
		prefix+"_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.httpRequestsTotal, err = meter.Int64Counter(
		prefix+"_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	return m, nil
}

// RecordTemplateFill records one template fill attempt.
func (m *PrometheusMetrics) RecordTemplateFill(ctx context.Context, templateID string, err error) {
	if m == nil || m.fillsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("template_id", templateID))
	m.fillsTotal.Add(ctx, 1, attrs)

	if err != nil && m.fillErrorsTotal != nil {
		m.fillErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordGeneration records one content generation.
func (m *PrometheusMetrics) RecordGeneration(ctx context.Context, templateID, mode string, duration time.Duration, err error) {
	if m == nil || m.generationDuration == nil || m.generationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("template_id", templateID),
		attribute.String("mode", mode),
	)
	m.generationDuration.Record(ctx, duration.Seconds(), attrs)
	m.generationsTotal.Add(ctx, 1, attrs)

	if err != nil && m.generationErrorsTotal != nil {
		m.generationErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordLLMCall records one LLM text or structured request.
func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil || m.llmInputTokens == nil || m.llmOutputTokens == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)

	if err != nil && m.llmErrorsTotal != nil {
		m.llmErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordEmbedding records one embedding request.
func (m *PrometheusMetrics) RecordEmbedding(ctx context.Context, model string, duration time.Duration, err error) {
	if m == nil || m.embeddingDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("model", model))
	m.embeddingDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil && m.embeddingErrorsTotal != nil {
		m.embeddingErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordGraphOperation records one graph store operation.
func (m *PrometheusMetrics) RecordGraphOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil || m.graphDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.graphDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil && m.graphErrorsTotal != nil {
		m.graphErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	if m == nil || m.httpDuration == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", statusCode),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
}

// Handler serves the Prometheus scrape endpoint.
// Returns a 503 handler when metrics are disabled.
func (m *PrometheusMetrics) Handler() http.Handler {
	if m == nil || m.handler == nil {
		return NoopMetrics{}.Handler()
	}
	return m.handler
}
