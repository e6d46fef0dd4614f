package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all engine collectors. Served on /metrics and by FormatMetrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	gateAvailable = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "go_stance_gate_available",
		Help: "1 when the upstream gate is open, 0 during backoff.",
	}, []string{"api"})

	gateBackoffs = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_gate_backoffs_total",
		Help: "Backoff periods triggered per upstream.",
	}, []string{"api"})

	cacheHits = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_cache_hits_total",
		Help: "Cache hits per cache.",
	}, []string{"cache"})

	cacheMisses = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_cache_misses_total",
		Help: "Cache misses per cache.",
	}, []string{"cache"})

	cacheEvictions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_cache_evictions_total",
		Help: "Entries evicted by the size bound.",
	}, []string{"cache"})

	remoteCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_remote_calls_total",
		Help: "Remote classifier calls by outcome.",
	}, []string{"outcome"})

	classifications = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_classifications_total",
		Help: "Terminal classifications by path (cache, remote, local).",
	}, []string{"path"})

	persistFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "go_stance_persist_failures_total",
		Help: "Comment records that failed to persist.",
	})

	commentFetches = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "go_stance_comment_fetches_total",
		Help: "Comment source fetches by outcome.",
	}, []string{"outcome"})
)

// RecordCommentFetch counts one comment source fetch (used by the sources package).
func RecordCommentFetch(outcome string) { commentFetches.WithLabelValues(outcome).Inc() }

// FormatMetrics returns metrics as a simple text format for the MCP server endpoint.
func FormatMetrics() string {
	families, err := Registry.Gather()
	if err != nil {
		return ""
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "_" + lp.GetValue()
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, v))
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n") + "\n"
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 30*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
