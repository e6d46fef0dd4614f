package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_stance/internal/engine"
	_ "modernc.org/sqlite"
)

// SQLite persists classified comments into a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS video_comments (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id          TEXT NOT NULL,
		comment_id        TEXT NOT NULL,
		text              TEXT NOT NULL,
		masked_username   TEXT NOT NULL,
		original_username TEXT NOT NULL,
		published_at      TEXT NOT NULL,
		sentiment         TEXT NOT NULL,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_video_comments_video ON video_comments (video_id);`)
	return err
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Save implements engine.PersistenceSink.
func (s *SQLite) Save(ctx context.Context, rec engine.CommentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO video_comments
		   (video_id, comment_id, text, masked_username, original_username, published_at, sentiment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VideoID, rec.CommentID, rec.Text, rec.MaskedUsername, rec.OriginalUsername,
		rec.PublishedAt.UTC().Format(time.RFC3339), string(rec.Sentiment), rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert video comment %s: %w", rec.CommentID, err)
	}
	return nil
}

// ListByVideo returns the stored comments of videoID, oldest first.
func (s *SQLite) ListByVideo(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, comment_id, text, masked_username, original_username, published_at, sentiment, created_at
		 FROM video_comments WHERE video_id = ? ORDER BY published_at, id LIMIT ?`,
		videoID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query video comments: %w", err)
	}
	defer rows.Close()

	var out []engine.CommentRecord
	for rows.Next() {
		var rec engine.CommentRecord
		var sentiment, published, created string
		if err := rows.Scan(&rec.VideoID, &rec.CommentID, &rec.Text, &rec.MaskedUsername,
			&rec.OriginalUsername, &published, &sentiment, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		rec.Sentiment = engine.Stance(sentiment)
		rec.PublishedAt, _ = time.Parse(time.RFC3339, published)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}
