package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Orchestrator picks, per comment, between the cache, the remote classifier and the
// local heuristic. It never fails: every remote failure degrades to ClassifyLocal.
type Orchestrator struct {
	remote RemoteClassifier
	gate   *Gate
	cache  *Cache[Stance]
	ttl    time.Duration
}

// NewOrchestrator composes the classification path. gate and cache are owned by the caller
// and may be shared with other orchestrators targeting the same remote.
func NewOrchestrator(remote RemoteClassifier, gate *Gate, cache *Cache[Stance], ttl time.Duration) *Orchestrator {
	if remote == nil {
		remote = UnavailableClassifier{}
	}
	return &Orchestrator{remote: remote, gate: gate, cache: cache, ttl: ttl}
}

// Classify returns the stance of text within the video context. Every result,
// including local fallbacks, is cached under a key derived from the input alone.
func (o *Orchestrator) Classify(ctx context.Context, text, videoTitle string) Stance {
	key := StanceKey(text, videoTitle)
	if st, ok := o.cache.Get(ctx, key); ok && st.IsValid() {
		classifications.WithLabelValues("cache").Inc()
		return st
	}

	st := o.classifyUncached(ctx, text, videoTitle)
	o.cache.Put(ctx, key, st, o.ttl)
	return st
}

func (o *Orchestrator) classifyUncached(ctx context.Context, text, videoTitle string) Stance {
	if strings.TrimSpace(text) == "" {
		classifications.WithLabelValues("local").Inc()
		return StanceNeutral
	}
	if !o.gate.IsAvailable() {
		return o.local(text, videoTitle)
	}

	st, err := o.remote.Classify(ctx, text, videoTitle)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			o.gate.TriggerBackoff()
		} else {
			slog.Debug("classify: remote failed, using local", slog.String("api", o.gate.Name()), slog.Any("error", err))
		}
		return o.local(text, videoTitle)
	}

	o.gate.ResetBackoff()
	if !st.IsValid() {
		st = StanceNeutral
	}
	classifications.WithLabelValues("remote").Inc()
	return st
}

func (o *Orchestrator) local(text, videoTitle string) Stance {
	classifications.WithLabelValues("local").Inc()
	return ClassifyLocal(text, videoTitle)
}
