package extraction

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var (
	// ErrEmptyInput is returned when the article text is blank
	ErrEmptyInput = errors.New("article text cannot be empty")
	// ErrInputTooShort is returned when the trimmed text is under MinInputChars
	ErrInputTooShort = errors.New("article text is too short for extraction")
	// ErrMalformedResponse covers unparseable or empty LLM output
	ErrMalformedResponse = errors.New("malformed LLM response")
	// ErrRetriesExhausted wraps the last error after the retry budget is spent
	ErrRetriesExhausted = errors.New("extraction retries exhausted")
	// ErrMissingAPIKey is a setup failure, not a per-article one
	ErrMissingAPIKey = errors.New("no LLM API key configured")
)

// HTTPError represents a non-200 answer from the chat completions endpoint
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err is worth another attempt:
// rate limiting, server errors and network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
