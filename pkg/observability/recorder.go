package observability

import (
	"context"
	"net/http"
	"sync"
	"time"
)

var (
	globalMetrics Recorder
	metricsMu     sync.RWMutex
)

// Recorder defines the interface for recording metrics.
// This allows for dependency injection and easier testing.
type Recorder interface {
	// Template metrics
	RecordTemplateFill(ctx context.Context, templateID string, err error)

	// Generation metrics
	RecordGeneration(ctx context.Context, templateID, mode string, duration time.Duration, err error)

	// LLM metrics
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordEmbedding(ctx context.Context, model string, duration time.Duration, err error)

	// Graph metrics
	RecordGraphOperation(ctx context.Context, operation string, duration time.Duration, err error)

	// HTTP metrics
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64)

	// Handler serves the metrics endpoint.
	Handler() http.Handler
}

// SetGlobalMetrics installs the process-wide metrics recorder.
func SetGlobalMetrics(m Recorder) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide metrics recorder.
// Returns a noop recorder until SetGlobalMetrics is called.
func GetGlobalMetrics() Recorder {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if globalMetrics == nil {
		return NoopMetrics{}
	}
	return globalMetrics
}

// Ensure implementations satisfy the interface.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = NoopMetrics{}
)
