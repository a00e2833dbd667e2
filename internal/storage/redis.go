package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"time"

	"atsengine/internal/config"
	"atsengine/internal/errors"
	"atsengine/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores model critiques keyed by content hash.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *errors.Logger

	hits, misses, failures atomic.Int64
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger *errors.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if cfg.Tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Warn("Failed to instrument Redis tracing", "error", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewStorageUnavailable("failed to connect to redis", err).
			WithContext("addr", cfg.Addr)
	}

	logger.Info("Redis connection established", "addr", cfg.Addr, "db", cfg.DB, "ttl", cfg.TTL)
	return newRedisCache(client, cfg, logger), nil
}

func newRedisCache(client *redis.Client, cfg config.RedisConfig, logger *errors.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL, logger: logger}
}

// critiqueKey namespaces a content hash under the configured prefix.
func (c *RedisCache) critiqueKey(hash string) string {
	if c.prefix == "" {
		return "critique:" + hash
	}
	return c.prefix + ":critique:" + hash
}

// GetCritique returns the cached critique, or (nil, nil) on a miss.
func (c *RedisCache) GetCritique(ctx context.Context, key string) (*types.Critique, error) {
	raw, err := c.client.Get(ctx, c.critiqueKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		c.failures.Add(1)
		return nil, errors.NewStorageUnavailable("failed to read critique cache", err)
	}

	var crit types.Critique
	if err := json.Unmarshal(raw, &crit); err != nil {
		// A corrupt entry is a miss; the next successful critique overwrites it.
		c.logger.Warn("Discarding undecodable cached critique", "key", key, "error", err)
		c.misses.Add(1)
		return nil, nil
	}
	c.hits.Add(1)
	return &crit, nil
}

// SetCritique stores crit under key with the configured TTL.
func (c *RedisCache) SetCritique(ctx context.Context, key string, crit types.Critique) error {
	raw, err := json.Marshal(crit)
	if err != nil {
		return errors.NewStorageUnavailable("failed to encode critique", err)
	}
	if err := c.client.Set(ctx, c.critiqueKey(key), raw, c.ttl).Err(); err != nil {
		return errors.NewStorageUnavailable("failed to write critique cache", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Stats reports critique lookups by outcome, plus the connection pool
// counters under "pool".
func (c *RedisCache) Stats() map[string]any {
	ps := c.client.PoolStats()
	return map[string]any{
		"critique_hits":   c.hits.Load(),
		"critique_misses": c.misses.Load(),
		"lookup_failures": c.failures.Load(),
		"pool": map[string]any{
			"conn_reuses":  ps.Hits,
			"conn_dials":   ps.Misses,
			"wait_timeout": ps.Timeouts,
			"total_conns":  ps.TotalConns,
			"idle_conns":   ps.IdleConns,
		},
	}
}

// Close closes the client.
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
