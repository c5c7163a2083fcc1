package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kadirpekel/ontomed/pkg/generator"
	"github.com/kadirpekel/ontomed/pkg/httpclient"
	"github.com/kadirpekel/ontomed/pkg/semantic"
	"github.com/kadirpekel/ontomed/pkg/template"
)

// errorResponse is the error body for every non-2xx answer.
type errorResponse struct {
	Detail string `json:"detail"`
}

// successResponse is the body for mutations that have no natural payload.
type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Detail: fmt.Sprintf(format, args...)})
}

// writeDomainError maps domain errors onto HTTP statuses: not-found errors
// become 404, missing backends and exhausted upstream retries 503,
// everything else 500. Upstream backoff is forwarded as a Retry-After
// header.
func writeDomainError(w http.ResponseWriter, err error) {
	if retryErr, ok := httpclient.AsRetryable(err); ok {
		if secs := int(retryErr.RetryAfter.Round(time.Second).Seconds()); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeError(w, http.StatusServiceUnavailable, "upstream provider overloaded: %s", err)
		return
	}

	switch {
	case template.IsNotFound(err), semantic.IsConceptNotFound(err):
		writeError(w, http.StatusNotFound, "%s", err)
	case errors.Is(err, generator.ErrNoLLM), errors.Is(err, semantic.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, "%s", err)
	default:
		writeError(w, http.StatusInternalServerError, "%s", err)
	}
}

// decodeJSON decodes a request body into v. An empty body is not an error;
// v keeps its zero value.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
