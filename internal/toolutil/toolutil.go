// Package toolutil provides helpers shared by the MCP tools and the REST API.
package toolutil

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_stance/internal/engine"
)

// GenericFailure is the only message shown for unexpected analysis errors.
const GenericFailure = "Failed to analyze video comments"

// PublicError maps an analysis error to a status code and a caller-facing message.
// Invalid input keeps its own message; anything else is logged and hidden.
func PublicError(err error) (int, string) {
	if errors.Is(err, engine.ErrInvalidInput) {
		return http.StatusBadRequest, err.Error()
	}
	slog.Error("analysis failed", slog.Any("error", err))
	return http.StatusInternalServerError, GenericFailure
}

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ResolveVideoID accepts either a bare 11-char video ID or any YouTube URL form.
func ResolveVideoID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", engine.InvalidInput("Video URL is required")
	}
	if bareVideoID.MatchString(ref) {
		return ref, nil
	}
	if id := engine.ExtractVideoID(ref); id != "" {
		return id, nil
	}
	return "", engine.InvalidInput("Invalid YouTube video URL")
}

// RecordsToComments converts stored records to the response shape. Only the masked
// username leaves the process.
func RecordsToComments(recs []engine.CommentRecord) []engine.AnalyzedComment {
	out := make([]engine.AnalyzedComment, 0, len(recs))
	for _, r := range recs {
		out = append(out, engine.AnalyzedComment{
			CommentID:   r.CommentID,
			Text:        r.Text,
			Username:    r.MaskedUsername,
			PublishedAt: r.PublishedAt.UTC().Format(time.RFC3339),
			Sentiment:   r.Sentiment,
		})
	}
	return out
}
