package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// RetryableError reports a request that still failed after every
// allowed retry. RetryAfter carries the backoff the server asked for,
// so callers can pass it on to their own clients.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable marks the error for callers that test behavior through
// an interface instead of the concrete type.
func (e *RetryableError) IsRetryable() bool {
	return true
}

// AsRetryable reports whether a RetryableError is in err's chain and
// returns it. Callers use this to surface upstream backoff to their
// own clients after the providers have given up.
func AsRetryable(err error) (*RetryableError, bool) {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr, true
	}
	return nil, false
}
