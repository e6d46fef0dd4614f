// Package store provides engine.PersistenceSink implementations.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_stance/internal/engine"
)

const defaultListLimit = 500

// Sink is a PersistenceSink that owns a connection.
type Sink interface {
	engine.PersistenceSink
	ListByVideo(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error)
	Close() error
}

// Open picks a sink by URL: postgres:// or postgresql:// uses pgx, sqlite:<path> or a
// plain file path uses SQLite, empty uses a no-op sink. Other URL schemes are rejected.
func Open(ctx context.Context, databaseURL string) (Sink, error) {
	switch {
	case databaseURL == "":
		return nop{}, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return orNil(ConnectPostgres(ctx, databaseURL))
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return orNil(OpenSQLite(ctx, strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")))
	case strings.Contains(databaseURL, "://"):
		return nil, fmt.Errorf("DATABASE_URL: unsupported scheme in %q", databaseURL)
	default:
		return orNil(OpenSQLite(ctx, databaseURL))
	}
}

// orNil keeps a failed constructor from yielding a non-nil interface around a nil pointer.
func orNil[S Sink](s S, err error) (Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

type nop struct{ engine.NopSink }

func (nop) ListByVideo(context.Context, string, int) ([]engine.CommentRecord, error) {
	return nil, nil
}

func (nop) Close() error { return nil }
