package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error taxonomy. Only ErrInvalidInput is ever returned to callers of Service.Analyze;
// the upstream errors are absorbed by the classification and comment paths.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("upstream rate limited")
	ErrTransient    = errors.New("upstream transient failure")
	ErrUnavailable  = errors.New("remote classifier unavailable")
)

// StatusError carries a non-2xx HTTP status from an upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d: %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// invalidInput wraps msg so that errors.Is(err, ErrInvalidInput) holds
// while Error() returns only msg.
type invalidInput struct{ msg string }

func (e *invalidInput) Error() string { return e.msg }
func (e *invalidInput) Unwrap() error { return ErrInvalidInput }

// InvalidInput returns an ErrInvalidInput with a caller-facing message.
func InvalidInput(msg string) error { return &invalidInput{msg: msg} }

// rateLimitMarkers match quota errors surfaced as plain text by LLM clients.
var rateLimitMarkers = []string{"429", "too many requests", "resource_exhausted", "quota"}

// IsRateLimited reports whether err signals quota exhaustion.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
