package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Cache provides 2-tier TTL caching: L1 in-memory + optional L2 Redis.
// L1 is fast but lost on restart. L2 survives restarts and is shared by replicas,
// but carries no coherency guarantees between processes.
type Cache[V any] struct {
	name       string
	clock      clockwork.Clock
	rdb        *redis.Client // nil if Redis unavailable
	maxEntries int

	mu sync.Mutex
	l1 map[string]cacheEntry[V]

	stop     chan struct{}
	stopOnce sync.Once
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// redisEnvelope keeps the absolute expiry next to the value so an L2 hit
// never outlives the original TTL once copied into L1.
type redisEnvelope[V any] struct {
	Value     V         `json:"v"`
	ExpiresAt time.Time `json:"exp"`
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	Name            string
	Clock           clockwork.Clock
	Redis           *redis.Client
	MaxEntries      int           // 0 = TTL-only, no size bound
	CleanupInterval time.Duration // 0 = lazy expiry only
}

// NewCache creates a cache. A positive CleanupInterval starts a sweep goroutine; call Close to stop it.
func NewCache[V any](opts CacheOptions) *Cache[V] {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Cache[V]{
		name:       opts.Name,
		clock:      clock,
		rdb:        opts.Redis,
		maxEntries: opts.MaxEntries,
		l1:         make(map[string]cacheEntry[V]),
		stop:       make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}
	slog.Debug("cache: initialized",
		slog.String("name", opts.Name),
		slog.Bool("redis", c.rdb != nil),
		slog.Int("max_entries", opts.MaxEntries),
	)
	return c
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("gst:%x", hash[:12]) // 24-char hex prefix
}

// Get tries L1, then L2. On L2 hit, populates L1. Expired entries are never returned.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	entry, ok := c.l1[key]
	if ok && now.Before(entry.expiresAt) {
		c.mu.Unlock()
		cacheHits.WithLabelValues(c.name).Inc()
		return entry.value, true
	}
	if ok {
		delete(c.l1, key)
	}
	c.mu.Unlock()

	if c.rdb != nil {
		if v, exp, ok := c.getL2(ctx, key); ok && now.Before(exp) {
			c.mu.Lock()
			c.setL1(key, cacheEntry[V]{value: v, expiresAt: exp})
			c.mu.Unlock()
			cacheHits.WithLabelValues(c.name).Inc()
			return v, true
		}
	}

	cacheMisses.WithLabelValues(c.name).Inc()
	var zero V
	return zero, false
}

// Put stores value in both tiers. Overwriting a key resets its TTL.
func (c *Cache[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	exp := c.clock.Now().Add(ttl)

	c.mu.Lock()
	c.setL1(key, cacheEntry[V]{value: value, expiresAt: exp})
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := json.Marshal(redisEnvelope[V]{Value: value, ExpiresAt: exp})
		if err != nil {
			return
		}
		if err := c.rdb.Set(ctx, c.redisKey(key), data, ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.String("name", c.name), slog.Any("error", err))
		}
	}
}

// Len returns the number of L1 entries, including not yet swept expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.l1)
}

// Close stops the sweep goroutine. The cache remains usable.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) redisKey(key string) string {
	return c.name + ":" + key
}

func (c *Cache[V]) getL2(ctx context.Context, key string) (V, time.Time, bool) {
	var zero V
	data, err := c.rdb.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("cache: L2 get failed", slog.String("name", c.name), slog.Any("error", err))
		}
		return zero, time.Time{}, false
	}
	var env redisEnvelope[V]
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, time.Time{}, false
	}
	return env.Value, env.ExpiresAt, true
}

// setL1 stores entry, making room first when key is new. Caller holds c.mu.
func (c *Cache[V]) setL1(key string, entry cacheEntry[V]) {
	if _, exists := c.l1[key]; !exists {
		c.evictIfNeeded()
	}
	c.l1[key] = entry
}

// evictIfNeeded removes entries when L1 reaches maxEntries. Caller holds c.mu.
// Removes expired entries first, then the entries closest to expiry.
func (c *Cache[V]) evictIfNeeded() {
	if c.maxEntries <= 0 || len(c.l1) < c.maxEntries {
		return
	}

	now := c.clock.Now()
	for k, e := range c.l1 {
		if !now.Before(e.expiresAt) {
			delete(c.l1, k)
		}
	}

	for len(c.l1) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.l1 {
			if first || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt, first = k, e.expiresAt, false
			}
		}
		if first {
			return
		}
		delete(c.l1, oldestKey)
		cacheEvictions.WithLabelValues(c.name).Inc()
	}
}

// sweep removes expired L1 entries.
func (c *Cache[V]) sweep() {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.l1 {
		if !now.Before(e.expiresAt) {
			delete(c.l1, k)
		}
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// ConnectRedis parses redisURL and pings the server. Empty URL or any failure returns nil,
// which disables the L2 tier.
func ConnectRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}
