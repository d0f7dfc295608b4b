// Package apierr provides shared error sentinels and retry infrastructure
// for HTTP-based API clients. All provider-specific error types are
// classified into these sentinels at the adapter boundary.
//
// Providers map HTTP status codes to these errors using fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exhausted (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrForbidden indicates the API rejected the credentials' permissions.
	ErrForbidden = errors.New("access forbidden")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrConnReset indicates the connection was reset mid-request. Providers
	// sometimes drop connections when an account runs out of quota, so this
	// is retried with the long base delay.
	ErrConnReset = errors.New("connection reset")
)

// errorEnvelope is the JSON error shape shared by OpenAI-style APIs.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ParseErrorBody extracts the human-readable message from an API error body.
// Falls back to the raw body when the envelope cannot be parsed.
func ParseErrorBody(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		return string(body)
	}
	return env.Error.Message
}

// ClassifyStatus maps an HTTP status code and message to a sentinel error.
// A 429 whose message mentions quota or billing is treated as quota
// exhaustion rather than a transient rate limit.
func ClassifyStatus(statusCode int, msg string) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, ErrForbidden)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		// Retryable server error.
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusBadRequest, http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// IsConnReset reports whether err looks like a connection reset by peer.
func IsConnReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnReset) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "ECONNRESET")
}
