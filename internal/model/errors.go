package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Body       string        // truncated response body, for operator context
	Err        error
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("HTTP %d", e.StatusCode)
	if e.Err != nil {
		msg = fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ConfigError reports a source whose type-specific config is missing or invalid.
// No network call is made for such a source.
type ConfigError struct {
	SourceID string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config for source %s: %s", e.SourceID, e.Reason)
}
