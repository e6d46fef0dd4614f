package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_stance/internal/engine"
	"golang.org/x/time/rate"
)

// YouTube comments via Data API v3 commentThreads.list, with its own cache and backoff gate.

const (
	ytDataAPIBase  = "https://www.googleapis.com/youtube/v3"
	ytPageSize     = 100 // API maximum per page
	ytErrBodyLimit = 4096
)

var errNoAPIKey = fmt.Errorf("youtube: %w: YOUTUBE_API_KEY is not set", engine.ErrTransient)

// Quota-style error reasons from the Data API error envelope.
var ytQuotaReasons = map[string]bool{
	"quotaExceeded":             true,
	"rateLimitExceeded":         true,
	"dailyLimitExceeded":        true,
	"userRateLimitExceeded":     true,
	"servingLimitExceeded":      true,
	"variableTermLimitExceeded": true,
}

// --- YouTube Data API v3 types ---

type ytCommentThreadsResp struct {
	Items         []ytCommentThread `json:"items"`
	NextPageToken string            `json:"nextPageToken"`
}

type ytCommentThread struct {
	ID      string `json:"id"`
	Snippet struct {
		TopLevelComment struct {
			ID      string `json:"id"`
			Snippet struct {
				TextDisplay       string `json:"textDisplay"`
				AuthorDisplayName string `json:"authorDisplayName"`
				PublishedAt       string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

type ytErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// YouTubeComments is the production CommentSource.
type YouTubeComments struct {
	apiKeys     []string // primary first; later keys are tried on quota errors
	baseURL     string
	client      *http.Client
	maxComments int
	limiter     *rate.Limiter
	retry       engine.RetryConfig

	cache    *engine.Cache[[]engine.Comment]
	titles   *engine.Cache[string] // nil = title lookups are not cached
	gate     *engine.Gate
	ttl      time.Duration
	titleTTL time.Duration
}

// YouTubeOptions configures YouTubeComments.
type YouTubeOptions struct {
	APIKey       string
	FallbackKeys []string
	BaseURL      string // "" = public Data API
	HTTPClient   *http.Client
	MaxComments  int     // 0 = one page
	QPS          float64 // page requests per second; 0 = unlimited
	Retry        *engine.RetryConfig
	Cache        *engine.Cache[[]engine.Comment]
	TitleCache   *engine.Cache[string]
	Gate         *engine.Gate
	CacheTTL     time.Duration
	TitleTTL     time.Duration // 0 = CacheTTL
}

// NewYouTubeComments builds the source. Cache and Gate are required.
func NewYouTubeComments(opts YouTubeOptions) *YouTubeComments {
	var keys []string
	for _, k := range append([]string{opts.APIKey}, opts.FallbackKeys...) {
		if k != "" {
			keys = append(keys, k)
		}
	}
	y := &YouTubeComments{
		apiKeys:     keys,
		baseURL:     opts.BaseURL,
		client:      opts.HTTPClient,
		maxComments: opts.MaxComments,
		retry:       engine.DefaultRetryConfig,
		cache:       opts.Cache,
		titles:      opts.TitleCache,
		gate:        opts.Gate,
		ttl:         opts.CacheTTL,
		titleTTL:    opts.TitleTTL,
	}
	if y.titleTTL <= 0 {
		y.titleTTL = y.ttl
	}
	if y.baseURL == "" {
		y.baseURL = ytDataAPIBase
	}
	if y.client == nil {
		y.client = &http.Client{Timeout: 15 * time.Second}
	}
	if y.maxComments <= 0 {
		y.maxComments = ytPageSize
	}
	if opts.Retry != nil {
		y.retry = *opts.Retry
	}
	limit := rate.Inf
	if opts.QPS > 0 {
		limit = rate.Limit(opts.QPS)
	}
	y.limiter = rate.NewLimiter(limit, 1)
	return y
}

// Fetch returns the top-level comments of videoID. While the gate is closed it returns
// an empty list without calling the API. Quota errors close the gate.
func (y *YouTubeComments) Fetch(ctx context.Context, videoID string) ([]engine.Comment, error) {
	if cached, ok := y.cache.Get(ctx, videoID); ok {
		engine.RecordCommentFetch("cache")
		return cached, nil
	}

	if !y.gate.IsAvailable() {
		engine.RecordCommentFetch("backoff")
		slog.Info("youtube: API in backoff mode, returning empty comments list", slog.String("video_id", videoID))
		return []engine.Comment{}, nil
	}

	if len(y.apiKeys) == 0 {
		engine.RecordCommentFetch("error")
		return nil, errNoAPIKey
	}

	comments, err := withKeyFallback(y.apiKeys, func(key string) ([]engine.Comment, error) {
		return y.fetchAll(ctx, videoID, key)
	})
	if err != nil {
		if engine.IsRateLimited(err) {
			y.gate.TriggerBackoff()
			engine.RecordCommentFetch("rate_limited")
		} else {
			engine.RecordCommentFetch("error")
		}
		return nil, fmt.Errorf("youtube comments %s: %w", videoID, err)
	}

	y.gate.ResetBackoff()
	y.cache.Put(ctx, videoID, comments, y.ttl)
	engine.RecordCommentFetch("success")
	return comments, nil
}

// withKeyFallback calls fn with each key in turn while the previous one hit its quota.
func withKeyFallback[T any](keys []string, fn func(key string) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i, key := range keys {
		v, err := fn(key)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !engine.IsRateLimited(err) {
			break
		}
		if i < len(keys)-1 {
			slog.Debug("youtube data API key exhausted, trying fallback", slog.Any("error", err))
		}
	}
	return zero, lastErr
}

func (y *YouTubeComments) fetchAll(ctx context.Context, videoID, key string) ([]engine.Comment, error) {
	var all []engine.Comment
	pageToken := ""
	for remaining := y.maxComments; remaining > 0; remaining -= ytPageSize {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := y.fetchPage(ctx, key, videoID, pageToken, min(remaining, ytPageSize))
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			all = append(all, toComment(item))
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if all == nil {
		all = []engine.Comment{}
	}
	return all, nil
}

func (y *YouTubeComments) fetchPage(ctx context.Context, key, videoID, pageToken string, size int) (*ytCommentThreadsResp, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("maxResults", strconv.Itoa(size))
	params.Set("key", key)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var result ytCommentThreadsResp
	if err := y.getJSON(ctx, "/commentThreads?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getJSON issues one Data API GET and decodes a 200 reply into into.
func (y *YouTubeComments) getJSON(ctx context.Context, path string, into any) error {
	apiURL := y.baseURL + path
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return y.client.Do(req)
	})
	if err != nil {
		return fmt.Errorf("youtube data API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, ytErrBodyLimit))
		return apiError(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("%w: decode youtube data API: %w", engine.ErrTransient, err)
	}
	return nil
}

// apiError maps a non-200 Data API reply. Quota reasons (usually sent as 403) and 429
// become rate-limit errors; everything else is transient.
func apiError(code int, body []byte) error {
	se := &engine.StatusError{Code: code, Body: string(body)}

	var env ytErrorResp
	if json.Unmarshal(body, &env) == nil {
		if env.Error.Message != "" {
			se.Body = env.Error.Message
		}
		for _, e := range env.Error.Errors {
			if ytQuotaReasons[e.Reason] {
				return fmt.Errorf("%w: %s: %w", engine.ErrRateLimited, e.Reason, se)
			}
		}
	}
	if code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", engine.ErrRateLimited, se)
	}
	return fmt.Errorf("%w: %w", engine.ErrTransient, se)
}

func toComment(item ytCommentThread) engine.Comment {
	top := item.Snippet.TopLevelComment
	id := item.ID
	if id == "" {
		id = top.ID
	}
	return engine.Comment{
		ID:          id,
		Text:        engine.HTMLToText(top.Snippet.TextDisplay),
		Author:      top.Snippet.AuthorDisplayName,
		PublishedAt: top.Snippet.PublishedAt,
	}
}
