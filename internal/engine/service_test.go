package engine

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	comments []Comment
	err      error
	gotID    string
}

func (f *fakeSource) Fetch(_ context.Context, videoID string) ([]Comment, error) {
	f.gotID = videoID
	return f.comments, f.err
}

type recordingSink struct {
	mu   sync.Mutex
	recs []CommentRecord
	err  error
}

func (s *recordingSink) Save(_ context.Context, rec CommentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.err
}

func newTestService(t *testing.T, src CommentSource, remote RemoteClassifier, sink PersistenceSink) (*Service, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	gate := NewGate("classifier-test", time.Minute, time.Hour, clock)
	cache := NewCache[Stance](CacheOptions{Name: "stance-test", Clock: clock})
	t.Cleanup(cache.Close)
	return NewService(ServiceDeps{
		Comments:   src,
		Classifier: NewOrchestrator(remote, gate, cache, 10*time.Minute),
		Sink:       sink,
		Runner:     BatchRunner{Concurrency: 2},
		Clock:      clock,
	}), clock
}

func TestService_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{}, nil, nil)
	tests := []struct {
		url, msg string
	}{
		{"", "Video URL is required"},
		{"   ", "Video URL is required"},
		{"https://example.com/watch?v=abc", "Invalid YouTube video URL"},
	}
	for _, tt := range tests {
		_, err := svc.Analyze(context.Background(), AnalyzeInput{VideoURL: tt.url})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Equal(t, tt.msg, err.Error())
	}
}

func TestService_EndToEndRateLimited(t *testing.T) {
	src := &fakeSource{comments: []Comment{
		{ID: "c1", Text: "I agree with this", Author: "alice", PublishedAt: "2024-03-05T10:00:00Z"},
		{ID: "c2", Text: "I disagree completely", Author: "bo", PublishedAt: "2024-03-06T10:00:00Z"},
		{ID: "c3", Text: "nice video", Author: "carol", PublishedAt: "2024-04-01T10:00:00Z"},
	}}
	remote := &fakeRemote{err: ErrRateLimited}
	sink := &recordingSink{}
	svc, _ := newTestService(t, src, remote, sink)

	out, err := svc.Analyze(context.Background(), AnalyzeInput{VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", src.gotID)

	require.Len(t, out.Comments, 3)
	var got []Stance
	for _, c := range out.Comments {
		got = append(got, c.Sentiment)
	}
	assert.Equal(t, []Stance{StanceAgree, StanceDisagree, StanceNeutral}, got)
	assert.Equal(t, 3, out.TotalComments)
	assert.Equal(t, SentimentDistribution{Agree: 1, Disagree: 1, Neutral: 1}, out.SentimentDistribution)
	assert.Equal(t, map[string]int{"2024-3": 2, "2024-4": 1}, out.MonthlyDistribution)
	assert.LessOrEqual(t, remote.Calls(), 2, "at most the in-flight calls reach the remote before the gate closes")

	assert.Equal(t, "al***", out.Comments[0].Username)
	assert.Equal(t, "bo", out.Comments[1].Username)
	assert.Equal(t, "ca***", out.Comments[2].Username)

	require.Len(t, sink.recs, 3)
	for _, rec := range sink.recs {
		assert.Equal(t, "dQw4w9WgXcQ", rec.VideoID)
		assert.NotEmpty(t, rec.OriginalUsername)
	}
}

func TestService_Defaults(t *testing.T) {
	src := &fakeSource{comments: []Comment{{Text: "hello there"}}}
	sink := &recordingSink{}
	svc, clock := newTestService(t, src, nil, sink)

	out, err := svc.Analyze(context.Background(), AnalyzeInput{VideoURL: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)
	require.Len(t, out.Comments, 1)

	c := out.Comments[0]
	assert.Equal(t, "An*******", c.Username)
	assert.Regexp(t, regexp.MustCompile(`^comment_\d+_[0-9a-f]{9}$`), c.CommentID)
	assert.Equal(t, clock.Now().UTC().Format(time.RFC3339), c.PublishedAt)
	assert.Equal(t, map[string]int{"2025-6": 1}, out.MonthlyDistribution)

	require.Len(t, sink.recs, 1)
	assert.Equal(t, AnonymousUser, sink.recs[0].OriginalUsername)
	assert.True(t, sink.recs[0].PublishedAt.Equal(clock.Now()))
}

func TestService_SinkErrorSwallowed(t *testing.T) {
	src := &fakeSource{comments: []Comment{{ID: "c1", Text: "great", Author: "alice"}}}
	sink := &recordingSink{err: errors.New("db down")}
	svc, _ := newTestService(t, src, nil, sink)

	out, err := svc.Analyze(context.Background(), AnalyzeInput{VideoURL: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)
	require.Len(t, out.Comments, 1)
	assert.Equal(t, StanceAgree, out.Comments[0].Sentiment)
}

func TestService_SourceErrorAbsorbed(t *testing.T) {
	src := &fakeSource{err: errors.New("quota")}
	svc, _ := newTestService(t, src, nil, nil)

	out, err := svc.Analyze(context.Background(), AnalyzeInput{VideoURL: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalComments)
	assert.NotNil(t, out.Comments)
	assert.NotNil(t, out.Keywords)
	assert.NotNil(t, out.MonthlyDistribution)
}

func TestService_DefaultTitle(t *testing.T) {
	var gotTitle string
	remote := &titleRemote{seen: &gotTitle}
	src := &fakeSource{comments: []Comment{{ID: "c1", Text: "ok"}}}
	svc, _ := newTestService(t, src, remote, nil)

	_, err := svc.Analyze(context.Background(), AnalyzeInput{VideoURL: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, DefaultVideoTitle, gotTitle)
}

type titleRemote struct{ seen *string }

func (r *titleRemote) Classify(_ context.Context, _, title string) (Stance, error) {
	*r.seen = title
	return StanceNeutral, nil
}

type stubTitles struct {
	title string
	err   error
}

func (s stubTitles) Title(context.Context, string) (string, error) { return s.title, s.err }

func TestService_TitleLookup(t *testing.T) {
	tests := []struct {
		name   string
		given  string
		titles TitleSource
		want   string
	}{
		{"given wins", "My Talk", stubTitles{title: "Looked Up"}, "My Talk"},
		{"looked up", "  ", stubTitles{title: "Looked Up"}, "Looked Up"},
		{"lookup error", "", stubTitles{err: errors.New("boom")}, DefaultVideoTitle},
		{"lookup empty", "", stubTitles{}, DefaultVideoTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTitle string
			src := &fakeSource{comments: []Comment{{ID: "c1", Text: "ok"}}}
			svc, _ := newTestService(t, src, &titleRemote{seen: &gotTitle}, nil)
			svc.titles = tt.titles

			_, err := svc.Analyze(context.Background(), AnalyzeInput{
				VideoURL:   "https://youtu.be/dQw4w9WgXcQ",
				VideoTitle: tt.given,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotTitle)
		})
	}
}
