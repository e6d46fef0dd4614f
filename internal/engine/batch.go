package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// BatchRunner bounds fan-out over a list of items.
type BatchRunner struct {
	Concurrency int             // max work invocations in flight; < 1 means 1
	Spacing     time.Duration   // flat delay before each invocation starts
	Clock       clockwork.Clock // nil = real clock
}

// RunBatch applies work to every item with at most b.Concurrency invocations in flight.
// out[i] always corresponds to items[i]. A panicking item leaves its zero value and
// does not affect siblings. Cancelling ctx skips the remaining pacing delays; work
// still runs and is expected to observe ctx itself.
func RunBatch[T, R any](ctx context.Context, b BatchRunner, items []T, work func(context.Context, T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}
	clock := b.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var g errgroup.Group
	g.SetLimit(max(b.Concurrency, 1))
	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("batch: item panicked", slog.Int("index", i), slog.Any("panic", fmt.Sprint(r)))
				}
			}()
			if b.Spacing > 0 {
				select {
				case <-clock.After(b.Spacing):
				case <-ctx.Done():
				}
			}
			out[i] = work(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
