package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go_stance/internal/engine"
	"github.com/anatolykoptev/go_stance/internal/engine/sources"
	"github.com/anatolykoptev/go_stance/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type appConfig struct {
	MCPPort        string
	APIAddr        string
	APIRateLimit   int
	CORSOrigins    []string
	RequestLogging bool
	Engine         engine.Config
}

func loadConfig() appConfig {
	d := engine.DefaultConfig()
	return appConfig{
		MCPPort:        env.Str("MCP_PORT", "8891"),
		APIAddr:        env.Str("API_ADDR", ":5000"),
		APIRateLimit:   env.Int("API_RATE_LIMIT", 60),
		CORSOrigins:    env.List("CORS_ORIGINS", ""),
		RequestLogging: env.Str("REQUEST_LOGGING", "true") == "true",
		Engine: engine.Config{
			LLMAPIKey:          env.Str("LLM_API_KEY", ""),
			LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
			LLMAPIBase:         env.Str("LLM_API_BASE", d.LLMAPIBase),
			LLMModel:           env.Str("LLM_MODEL", d.LLMModel),
			LLMTemperature:     env.Float("LLM_TEMPERATURE", d.LLMTemperature),
			LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", d.LLMMaxTokens),
			LLMTimeout:         env.Duration("LLM_TIMEOUT", d.LLMTimeout),

			YouTubeAPIKey:          env.Str("YOUTUBE_API_KEY", ""),
			YouTubeAPIKeyFallbacks: env.List("YOUTUBE_API_KEY_FALLBACKS", ""),
			YouTubeMaxComments:     env.Int("YOUTUBE_MAX_COMMENTS", d.YouTubeMaxComments),
			YouTubeQPS:             env.Float("YOUTUBE_QPS", d.YouTubeQPS),
			TitleCacheTTL:          env.Duration("TITLE_CACHE_TTL", d.TitleCacheTTL),

			ClassifierBackoffInitial: env.Duration("CLASSIFIER_BACKOFF_INITIAL", d.ClassifierBackoffInitial),
			ClassifierBackoffMax:     env.Duration("CLASSIFIER_BACKOFF_MAX", d.ClassifierBackoffMax),
			CommentsBackoffInitial:   env.Duration("COMMENTS_BACKOFF_INITIAL", d.CommentsBackoffInitial),
			CommentsBackoffMax:       env.Duration("COMMENTS_BACKOFF_MAX", d.CommentsBackoffMax),

			StanceCacheTTL:       env.Duration("STANCE_CACHE_TTL", d.StanceCacheTTL),
			CommentsCacheTTL:     env.Duration("COMMENTS_CACHE_TTL", d.CommentsCacheTTL),
			CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", d.CacheMaxEntries),
			CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", d.CacheCleanupInterval),
			RedisURL:             env.Str("REDIS_URL", ""),

			DatabaseURL: env.Str("DATABASE_URL", ""),

			BatchConcurrency: env.Int("BATCH_CONCURRENCY", d.BatchConcurrency),
			BatchSpacing:     env.Duration("BATCH_SPACING", d.BatchSpacing),
		},
	}
}

// app owns every long-lived collaborator. One gate and one cache per upstream.
type app struct {
	service    *engine.Service
	classifier *engine.Orchestrator
	sink       store.Sink // nil when no DATABASE_URL is configured

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", slog.Any("error", err))
		}
	}
}

func buildApp(ctx context.Context, cfg appConfig) (*app, error) {
	c := cfg.Engine
	clock := clockwork.NewRealClock()
	a := &app{}

	rdb := engine.ConnectRedis(ctx, c.RedisURL)
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
	}

	stanceCache := engine.NewCache[engine.Stance](cacheOptions("stance", c, clock, rdb))
	commentCache := engine.NewCache[[]engine.Comment](cacheOptions("comments", c, clock, rdb))
	titleCache := engine.NewCache[string](cacheOptions("titles", c, clock, rdb))
	a.closers = append(a.closers,
		func() error { stanceCache.Close(); return nil },
		func() error { commentCache.Close(); return nil },
		func() error { titleCache.Close(); return nil },
	)

	classifierGate := engine.NewGate("classifier", c.ClassifierBackoffInitial, c.ClassifierBackoffMax, clock)
	commentsGate := engine.NewGate("youtube", c.CommentsBackoffInitial, c.CommentsBackoffMax, clock)

	a.classifier = engine.NewOrchestrator(newRemoteClassifier(c), classifierGate, stanceCache, c.StanceCacheTTL)

	comments := sources.NewYouTubeComments(sources.YouTubeOptions{
		APIKey:       c.YouTubeAPIKey,
		FallbackKeys: c.YouTubeAPIKeyFallbacks,
		MaxComments:  c.YouTubeMaxComments,
		QPS:          c.YouTubeQPS,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		Cache:      commentCache,
		TitleCache: titleCache,
		Gate:       commentsGate,
		CacheTTL:   c.CommentsCacheTTL,
		TitleTTL:   c.TitleCacheTTL,
	})
	if c.YouTubeAPIKey == "" {
		slog.Warn("YOUTUBE_API_KEY not set, analyses will return no comments")
	}

	var sink engine.PersistenceSink = engine.NopSink{}
	if c.DatabaseURL != "" {
		s, err := store.Open(ctx, c.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open comment store: %w", err)
		}
		a.sink = s
		a.closers = append(a.closers, s.Close)
		sink = s
		slog.Info("comment store initialized")
	}

	a.service = engine.NewService(engine.ServiceDeps{
		Comments:   comments,
		Titles:     comments,
		Classifier: a.classifier,
		Sink:       sink,
		Runner: engine.BatchRunner{
			Concurrency: c.BatchConcurrency,
			Spacing:     c.BatchSpacing,
			Clock:       clock,
		},
		Clock: clock,
	})
	return a, nil
}

func cacheOptions(name string, c engine.Config, clock clockwork.Clock, rdb *redis.Client) engine.CacheOptions {
	return engine.CacheOptions{
		Name:            name,
		Clock:           clock,
		Redis:           rdb,
		MaxEntries:      c.CacheMaxEntries,
		CleanupInterval: c.CacheCleanupInterval,
	}
}

// newRemoteClassifier returns the LLM-backed classifier, or a permanently unavailable one
// when no API key is configured.
func newRemoteClassifier(c engine.Config) engine.RemoteClassifier {
	if c.LLMAPIKey == "" {
		slog.Warn("LLM_API_KEY not set, using local stance heuristic only")
		return engine.UnavailableClassifier{Reason: fmt.Errorf("LLM_API_KEY not set")}
	}
	client := llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: c.LLMTimeout + 5*time.Second}),
	)
	return engine.NewLLMClassifier(func(ctx context.Context, system, prompt string) (string, error) {
		return client.Complete(ctx, system, prompt)
	}, c.LLMTimeout)
}
