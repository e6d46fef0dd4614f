package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Defaults applied to missing request and comment fields.
const (
	DefaultVideoTitle = "YouTube Video"
	AnonymousUser     = "Anonymous"
)

// CommentSource supplies the raw comments of a video. An empty list is not a failure.
type CommentSource interface {
	Fetch(ctx context.Context, videoID string) ([]Comment, error)
}

// TitleSource looks up a video title when the caller supplied none.
type TitleSource interface {
	Title(ctx context.Context, videoID string) (string, error)
}

// CommentRecord is the persisted form of one classified comment.
type CommentRecord struct {
	VideoID          string
	CommentID        string
	Text             string
	MaskedUsername   string
	OriginalUsername string
	PublishedAt      time.Time
	Sentiment        Stance
	CreatedAt        time.Time
}

// PersistenceSink stores classified comments. Failures never affect the analysis result.
type PersistenceSink interface {
	Save(ctx context.Context, rec CommentRecord) error
}

// NopSink discards records.
type NopSink struct{}

// Save implements PersistenceSink.
func (NopSink) Save(context.Context, CommentRecord) error { return nil }

// Service runs the full analysis: fetch → bounded classification → persistence → aggregation.
type Service struct {
	comments   CommentSource
	titles     TitleSource
	classifier *Orchestrator
	sink       PersistenceSink
	runner     BatchRunner
	clock      clockwork.Clock
}

// ServiceDeps are the collaborators composed by main.
type ServiceDeps struct {
	Comments   CommentSource
	Titles     TitleSource // nil = DefaultVideoTitle when none is given
	Classifier *Orchestrator
	Sink       PersistenceSink // nil = NopSink
	Runner     BatchRunner
	Clock      clockwork.Clock // nil = real clock
}

// NewService builds a Service from deps.
func NewService(deps ServiceDeps) *Service {
	s := &Service{
		comments:   deps.Comments,
		titles:     deps.Titles,
		classifier: deps.Classifier,
		sink:       deps.Sink,
		runner:     deps.Runner,
		clock:      deps.Clock,
	}
	if s.sink == nil {
		s.sink = NopSink{}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.runner.Clock == nil {
		s.runner.Clock = s.clock
	}
	return s
}

// Analyze classifies every comment of the video at in.VideoURL. The only returned
// error is ErrInvalidInput; upstream failures degrade to fewer comments or local stances.
func (s *Service) Analyze(ctx context.Context, in AnalyzeInput) (out AnalyzeOutput, err error) {
	_ = TrackOperation(ctx, "analyze:"+in.VideoURL, func(ctx context.Context) error {
		out, err = s.analyze(ctx, in)
		return err
	})
	return
}

func (s *Service) analyze(ctx context.Context, in AnalyzeInput) (AnalyzeOutput, error) {
	videoURL := strings.TrimSpace(in.VideoURL)
	if videoURL == "" {
		return AnalyzeOutput{}, InvalidInput("Video URL is required")
	}
	videoID := ExtractVideoID(videoURL)
	if videoID == "" {
		return AnalyzeOutput{}, InvalidInput("Invalid YouTube video URL")
	}
	title := s.resolveTitle(ctx, videoID, in.VideoTitle)

	comments, err := s.comments.Fetch(ctx, videoID)
	if err != nil {
		slog.Warn("analyze: comment fetch failed, continuing with none",
			slog.String("video_id", videoID), slog.Any("error", err))
		comments = nil
	}

	analyzed := RunBatch(ctx, s.runner, comments, func(ctx context.Context, c Comment) AnalyzedComment {
		return s.analyzeOne(ctx, videoID, title, c)
	})
	for i := range analyzed {
		if !analyzed[i].Sentiment.IsValid() {
			analyzed[i], _ = s.describe(videoID, comments[i], StanceNeutral)
		}
	}

	texts := make([]string, 0, len(analyzed))
	for _, c := range analyzed {
		if c.Text != "" {
			texts = append(texts, c.Text)
		}
	}

	slog.Info("analyze: done", slog.String("video_id", videoID), slog.Int("comments", len(analyzed)))
	return AnalyzeOutput{
		TotalComments:         len(analyzed),
		SentimentDistribution: Distribution(analyzed),
		MonthlyDistribution:   MonthlyDistribution(analyzed, s.clock.Now()),
		Keywords:              ExtractKeywords(texts),
		Comments:              analyzed,
	}, nil
}

func (s *Service) resolveTitle(ctx context.Context, videoID, given string) string {
	if title := strings.TrimSpace(given); title != "" {
		return title
	}
	if s.titles != nil {
		title, err := s.titles.Title(ctx, videoID)
		if err != nil {
			slog.Debug("analyze: title lookup failed", slog.String("video_id", videoID), slog.Any("error", err))
		}
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	return DefaultVideoTitle
}

func (s *Service) analyzeOne(ctx context.Context, videoID, title string, c Comment) AnalyzedComment {
	st := s.classifier.Classify(ctx, c.Text, title)
	out, rec := s.describe(videoID, c, st)
	if err := s.sink.Save(ctx, rec); err != nil {
		persistFailures.Inc()
		slog.Error("analyze: error saving comment", slog.String("comment_id", rec.CommentID), slog.Any("error", err))
	}
	return out
}

// describe fills defaults for missing fields and builds both the response row and the record.
func (s *Service) describe(videoID string, c Comment, st Stance) (AnalyzedComment, CommentRecord) {
	now := s.clock.Now().UTC()

	username := strings.TrimSpace(c.Author)
	if username == "" {
		username = AnonymousUser
	}
	masked := MaskUsername(username)

	id := c.ID
	if id == "" {
		id = fmt.Sprintf("comment_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	}

	published := c.PublishedAt
	publishedAt, err := time.Parse(time.RFC3339, published)
	if published == "" || err != nil {
		if published == "" {
			published = now.Format(time.RFC3339)
		}
		publishedAt = now
	}

	return AnalyzedComment{
			CommentID:   id,
			Text:        c.Text,
			Username:    masked,
			PublishedAt: published,
			Sentiment:   st,
		}, CommentRecord{
			VideoID:          videoID,
			CommentID:        id,
			Text:             c.Text,
			MaskedUsername:   masked,
			OriginalUsername: username,
			PublishedAt:      publishedAt,
			Sentiment:        st,
			CreatedAt:        now,
		}
}
