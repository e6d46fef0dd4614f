package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RemoteClassifier classifies one comment through an external service.
// Errors wrap ErrRateLimited or ErrTransient.
type RemoteClassifier interface {
	Classify(ctx context.Context, text, videoTitle string) (Stance, error)
}

// CompleteFunc sends a system + user prompt and returns the raw reply text.
// It adapts any chat client (go-kit llm in production, fakes in tests).
type CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

// LLMClassifier is the network-backed RemoteClassifier.
type LLMClassifier struct {
	complete CompleteFunc
	timeout  time.Duration
}

// NewLLMClassifier wraps complete. A non-positive timeout defaults to 20s.
func NewLLMClassifier(complete CompleteFunc, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &LLMClassifier{complete: complete, timeout: timeout}
}

// Classify calls the model once. A reply outside the closed set is replaced by
// StanceNeutral and is not an error.
func (c *LLMClassifier) Classify(ctx context.Context, text, videoTitle string) (Stance, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(stancePrompt, videoTitle, text)
	raw, err := c.complete(ctx, stanceSystemPrompt, prompt)
	if err != nil {
		return "", classifyRemoteError(err)
	}

	st, ok := ParseStance(stripFences(raw))
	if !ok {
		remoteCalls.WithLabelValues("invalid_reply").Inc()
		slog.Debug("llm: reply outside closed set, using neutral", slog.String("reply", Truncate(raw, 80)))
		return StanceNeutral, nil
	}
	remoteCalls.WithLabelValues("success").Inc()
	return st, nil
}

// classifyRemoteError maps a raw client error onto the failure taxonomy.
func classifyRemoteError(err error) error {
	switch {
	case IsRateLimited(err):
		remoteCalls.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case errors.Is(err, context.DeadlineExceeded):
		remoteCalls.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: timeout: %w", ErrTransient, err)
	default:
		remoteCalls.WithLabelValues("transient").Inc()
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
}

// UnavailableClassifier stands in when no real client could be constructed.
// Every call fails as a transient error.
type UnavailableClassifier struct {
	Reason error
}

// Classify always returns ErrTransient wrapping ErrUnavailable.
func (u UnavailableClassifier) Classify(context.Context, string, string) (Stance, error) {
	if u.Reason != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrTransient, ErrUnavailable, u.Reason)
	}
	return "", fmt.Errorf("%w: %w", ErrTransient, ErrUnavailable)
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
