package toolutil

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/anatolykoptev/go_stance/internal/engine"
)

func TestPublicError(t *testing.T) {
	code, msg := PublicError(engine.InvalidInput("Invalid YouTube video URL"))
	if code != http.StatusBadRequest || msg != "Invalid YouTube video URL" {
		t.Errorf("invalid input: got %d %q", code, msg)
	}

	code, msg = PublicError(errors.New("db exploded: password=hunter2"))
	if code != http.StatusInternalServerError || msg != GenericFailure {
		t.Errorf("internal: got %d %q", code, msg)
	}
}

func TestResolveVideoID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"  ", "", true},
		{"https://example.com/video", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveVideoID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, engine.ErrInvalidInput) {
				t.Errorf("ResolveVideoID(%q) error = %v, want ErrInvalidInput", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ResolveVideoID(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRecordsToComments(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 0, 0, 0, time.FixedZone("X", 3600))
	out := RecordsToComments([]engine.CommentRecord{{
		CommentID:        "c1",
		Text:             "hello",
		MaskedUsername:   "al***",
		OriginalUsername: "alice",
		PublishedAt:      ts,
		Sentiment:        engine.StanceNeutral,
	}})
	if len(out) != 1 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Username != "al***" {
		t.Errorf("username = %q, want masked", out[0].Username)
	}
	if out[0].PublishedAt != "2024-03-05T09:00:00Z" {
		t.Errorf("publishedAt = %q", out[0].PublishedAt)
	}
	if empty := RecordsToComments(nil); empty == nil {
		t.Error("expected non-nil empty slice")
	}
}
