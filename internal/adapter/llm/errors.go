package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// apiError is a non-2xx response from a model backend.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying: server errors and
// rate limiting are; auth/config/malformed-request errors are not.
func (e *apiError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// isTransient classifies a generation failure. Timeouts, connection resets
// and 5xx-equivalent responses are retried; everything else fails fast.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var api *apiError
	if errors.As(err, &api) {
		return api.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Covers client timeouts, connection refused/reset, and DNS failures:
	// url.Error and net.OpError both implement net.Error.
	var netErr net.Error
	return errors.As(err, &netErr)
}
