package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_stance/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	got engine.AnalyzeInput
	out engine.AnalyzeOutput
	err error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in engine.AnalyzeInput) (engine.AnalyzeOutput, error) {
	f.got = in
	return f.out, f.err
}

type fakeHistory struct{ recs []engine.CommentRecord }

func (f *fakeHistory) ListByVideo(context.Context, string, int) ([]engine.CommentRecord, error) {
	return f.recs, nil
}

func post(t *testing.T, s *Server, body string) (int, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestAnalyze_OK(t *testing.T) {
	a := &fakeAnalyzer{out: engine.AnalyzeOutput{
		TotalComments:         1,
		SentimentDistribution: engine.SentimentDistribution{Agree: 1},
		MonthlyDistribution:   map[string]int{"2024-3": 1},
		Keywords:              []string{"great"},
		Comments: []engine.AnalyzedComment{{
			CommentID: "c1", Text: "great", Username: "al***", PublishedAt: "2024-03-05T10:00:00Z", Sentiment: engine.StanceAgree,
		}},
	}}
	s := New(Config{}, a, nil)

	code, out := post(t, s, `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","videoTitle":"Title"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", a.got.VideoURL)
	assert.Equal(t, "Title", a.got.VideoTitle)
	assert.EqualValues(t, 1, out["totalComments"])
	assert.Equal(t, map[string]any{"agree": 1.0, "disagree": 0.0, "neutral": 0.0}, out["sentimentDistribution"])
	assert.Equal(t, map[string]any{"2024-3": 1.0}, out["monthlyDistribution"])

	comments := out["comments"].([]any)
	require.Len(t, comments, 1)
	c := comments[0].(map[string]any)
	assert.Equal(t, "agree", c["sentiment"])
	assert.Equal(t, "al***", c["username"])
	assert.Equal(t, "c1", c["commentId"])
}

func TestAnalyze_InvalidInput(t *testing.T) {
	s := New(Config{}, &fakeAnalyzer{err: engine.InvalidInput("Video URL is required")}, nil)
	code, out := post(t, s, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Video URL is required", out["error"])
}

func TestAnalyze_BadJSON(t *testing.T) {
	s := New(Config{}, &fakeAnalyzer{}, nil)
	code, out := post(t, s, `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid JSON body", out["error"])
}

func TestAnalyze_InternalError(t *testing.T) {
	s := New(Config{}, &fakeAnalyzer{err: errors.New("disk on fire")}, nil)
	code, out := post(t, s, `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to analyze video comments", out["error"])
}

func TestHealth(t *testing.T) {
	s := New(Config{Version: "1.2.3"}, &fakeAnalyzer{}, nil)
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "1.2.3", out["version"])
}

func TestMetrics(t *testing.T) {
	engine.RecordCommentFetch("success")
	s := New(Config{}, &fakeAnalyzer{}, nil)
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "comment_fetches")
}

func TestVideoComments(t *testing.T) {
	hist := &fakeHistory{recs: []engine.CommentRecord{{
		CommentID: "c1", Text: "ok", MaskedUsername: "bo*", OriginalUsername: "bob",
		PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Sentiment: engine.StanceDisagree,
	}}}
	s := New(Config{}, &fakeAnalyzer{}, hist)

	req, _ := http.NewRequest(http.MethodGet, "/api/videos/dQw4w9WgXcQ/comments?limit=5", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		VideoID  string                   `json:"videoId"`
		Total    int                      `json:"total"`
		Comments []engine.AnalyzedComment `json:"comments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "bo*", out.Comments[0].Username)
	assert.NotContains(t, out.Comments[0].Username, "bob")

	req, _ = http.NewRequest(http.MethodGet, "/api/videos/short/comments", nil)
	resp, err = s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	s := New(Config{RateLimit: 1}, &fakeAnalyzer{}, nil)
	code, _ := post(t, s, `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusOK, code)
	code, out := post(t, s, `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, out["error"], "Rate limit")
}
