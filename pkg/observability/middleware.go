// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RouteLabeler maps a routed request to a low-cardinality label used
// for metrics, typically the router's matched pattern. It runs after
// the handler, when the pattern is resolved. Without one the raw URL
// path is used.
type RouteLabeler func(*http.Request) string

// HTTPMiddleware records a span and request metrics for every request
// passing through it. Either tracer or metrics may be nil; the
// corresponding signal is skipped.
func HTTPMiddleware(tracer trace.Tracer, metrics Recorder, route ...RouteLabeler) func(http.Handler) http.Handler {
	var labeler RouteLabeler
	if len(route) > 0 {
		labeler = route[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var span trace.Span
			ctx := r.Context()
			if tracer != nil {
				ctx, span = tracer.Start(ctx, SpanHTTPRequest,
					trace.WithAttributes(
						attribute.String(AttrHTTPMethod, r.Method),
						attribute.String(AttrHTTPPath, r.URL.Path),
					),
				)
				defer span.End()
			}

			requestSize := max(r.ContentLength, 0)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(ctx)

			next.ServeHTTP(recorder, r)

			if span != nil {
				span.SetAttributes(
					attribute.Int(AttrHTTPStatusCode, recorder.status),
					attribute.Int64(AttrHTTPResponseSize, recorder.bytes),
				)
				if recorder.status >= 400 {
					span.SetAttributes(attribute.String(AttrErrorType, fmt.Sprintf("HTTP %d", recorder.status)))
				}
			}

			if metrics != nil {
				path := r.URL.Path
				if labeler != nil {
					path = labeler(r)
				}
				metrics.RecordHTTPRequest(ctx, r.Method, path, recorder.status,
					time.Since(start), requestSize, recorder.bytes)
			}
		})
	}
}

// statusRecorder captures the status code and body size a handler
// writes.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Hijack passes through so streaming handlers keep working behind the
// middleware.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not implement http.Hijacker")
}

// Flush passes through for handlers that stream partial responses.
func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
