package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_stance/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres persists classified comments into video_comments.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("comments postgres connected", slog.String("addr", config.ConnConfig.Host))
	return db, nil
}

// Close releases the pool.
func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

func (db *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := db.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

// Save implements engine.PersistenceSink.
func (db *Postgres) Save(ctx context.Context, rec engine.CommentRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO video_comments
		   (video_id, comment_id, text, masked_username, original_username, published_at, sentiment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.VideoID, rec.CommentID, rec.Text, rec.MaskedUsername, rec.OriginalUsername,
		rec.PublishedAt.UTC(), string(rec.Sentiment), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert video comment %s: %w", rec.CommentID, err)
	}
	return nil
}

// ListByVideo returns the stored comments of videoID, oldest first.
func (db *Postgres) ListByVideo(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT video_id, comment_id, text, masked_username, original_username, published_at, sentiment, created_at
		 FROM video_comments WHERE video_id = $1 ORDER BY published_at, id LIMIT $2`,
		videoID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query video comments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (engine.CommentRecord, error) {
		var rec engine.CommentRecord
		var sentiment string
		err := row.Scan(&rec.VideoID, &rec.CommentID, &rec.Text, &rec.MaskedUsername,
			&rec.OriginalUsername, &rec.PublishedAt, &sentiment, &rec.CreatedAt)
		rec.Sentiment = engine.Stance(sentiment)
		return rec, err
	})
}
