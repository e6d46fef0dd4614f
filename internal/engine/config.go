package engine

import "time"

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMTimeout         time.Duration

	YouTubeAPIKey          string
	YouTubeAPIKeyFallbacks []string
	YouTubeMaxComments     int
	YouTubeQPS             float64
	TitleCacheTTL          time.Duration

	ClassifierBackoffInitial time.Duration
	ClassifierBackoffMax     time.Duration
	CommentsBackoffInitial   time.Duration
	CommentsBackoffMax       time.Duration

	StanceCacheTTL       time.Duration
	CommentsCacheTTL     time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	RedisURL             string

	DatabaseURL string

	BatchConcurrency int
	BatchSpacing     time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		LLMAPIBase:               "https://generativelanguage.googleapis.com/v1beta/openai",
		LLMModel:                 "gemini-2.0-flash",
		LLMTemperature:           0.1,
		LLMMaxTokens:             16,
		LLMTimeout:               20 * time.Second,
		YouTubeMaxComments:       100,
		YouTubeQPS:               5,
		ClassifierBackoffInitial: 5 * time.Minute,
		ClassifierBackoffMax:     2 * time.Hour,
		CommentsBackoffInitial:   time.Minute,
		CommentsBackoffMax:       30 * time.Minute,
		StanceCacheTTL:           10 * time.Minute,
		CommentsCacheTTL:         15 * time.Minute,
		TitleCacheTTL:            24 * time.Hour,
		CacheMaxEntries:          5000,
		CacheCleanupInterval:     5 * time.Minute,
		BatchConcurrency:         2,
		BatchSpacing:             500 * time.Millisecond,
	}
}
