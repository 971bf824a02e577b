// Package provider implements the upstream model clients: an OpenAI-compatible
// HTTP client (OpenRouter, Hugging Face router) and an Anthropic client.
package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrChatOnly is returned by Completion on providers that support only the
// chat protocol.
var ErrChatOnly = errors.New("provider supports only the chat protocol")

// StatusError carries the HTTP status of a failed provider call so callers can
// distinguish rate limiting from other failures.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider error: status %d: %s", e.Status, e.Message)
}

// IsRateLimit reports whether the error is an upstream rate-limit response.
func IsRateLimit(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusTooManyRequests
}

// IsClientError reports whether the error is a non-rate-limit 4xx response,
// the signal for trying the alternate protocol on the same candidate.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status >= 400 && se.Status < 500 && se.Status != http.StatusTooManyRequests
}
