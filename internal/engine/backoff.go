package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Gate tracks availability of one remote dependency with an exponential cooldown.
// One Gate exists per dependency for the process lifetime; it is safe for concurrent use.
type Gate struct {
	name    string
	clock   clockwork.Clock
	initial time.Duration
	max     time.Duration

	mu        sync.Mutex
	available bool
	retryAt   time.Time
	current   time.Duration
}

// NewGate creates an open gate. maxDelay below initial is raised to initial.
func NewGate(name string, initial, maxDelay time.Duration, clock clockwork.Clock) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	g := &Gate{
		name:      name,
		clock:     clock,
		initial:   initial,
		max:       maxDelay,
		available: true,
		current:   initial,
	}
	gateAvailable.WithLabelValues(name).Set(1)
	return g
}

// Name returns the dependency name the gate guards.
func (g *Gate) Name() string { return g.name }

// IsAvailable reports whether a call may be attempted. Once retryAt has passed the
// gate re-opens on its own, before any call has succeeded.
func (g *Gate) IsAvailable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.available && !g.clock.Now().Before(g.retryAt) {
		g.available = true
		gateAvailable.WithLabelValues(g.name).Set(1)
		slog.Info("backoff: attempting upstream again after backoff period", slog.String("api", g.name))
	}
	return g.available
}

// TriggerBackoff closes the gate for the current delay and doubles the delay, capped at max.
// Call once per observed rate-limit failure.
func (g *Gate) TriggerBackoff() {
	g.mu.Lock()
	defer g.mu.Unlock()

	wait := g.current
	g.available = false
	g.retryAt = g.clock.Now().Add(wait)
	g.current = min(g.current*2, g.max)

	gateAvailable.WithLabelValues(g.name).Set(0)
	gateBackoffs.WithLabelValues(g.name).Inc()
	slog.Warn("backoff: upstream quota exceeded",
		slog.String("api", g.name),
		slog.Duration("wait", wait),
		slog.Duration("next_delay", g.current),
	)
}

// ResetBackoff halves the delay after a success, floored at the initial delay.
// It does not change availability.
func (g *Gate) ResetBackoff() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = max(g.current/2, g.initial)
}

// CurrentDelay returns the delay the next TriggerBackoff will apply.
func (g *Gate) CurrentDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// RetryAt returns the time the gate re-opens; zero if never closed.
func (g *Gate) RetryAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retryAt
}
