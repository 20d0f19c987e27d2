// Package cache holds Redis-backed read-through caches in front of the
// repository.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"metadirectory/src/core/domain"
	"metadirectory/src/core/ports"
	"metadirectory/src/infra/config"
)

const tokenKeyPrefix = "metadirectory:token:"

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
}

// NewClient connects to Redis. It returns nil, nil when no URL is configured.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// TokenCache is a read-through cache for bearer token lookups. Only hits
// are cached; a token is never cached past its own expiry. Cache errors fall
// through to the underlying repository.
type TokenCache struct {
	next  ports.TokenRepository
	rdb   redis.Cmdable
	ttl   time.Duration
	log   *slog.Logger
	clock func() time.Time
}

var _ ports.TokenRepository = (*TokenCache)(nil)

// NewTokenCache wraps next with a Redis cache.
func NewTokenCache(next ports.TokenRepository, rdb redis.Cmdable, ttl time.Duration, log *slog.Logger) *TokenCache {
	return &TokenCache{next: next, rdb: rdb, ttl: ttl, log: log, clock: time.Now}
}

type cachedToken struct {
	AccountID string    `json:"account_id"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *TokenCache) GetToken(ctx context.Context, token string) (*domain.AuthToken, error) {
	key := tokenKey(token)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ct cachedToken
		if jerr := json.Unmarshal(raw, &ct); jerr == nil {
			return &domain.AuthToken{
				Token:     token,
				AccountID: ct.AccountID,
				Scope:     domain.TokenScope(ct.Scope),
				ExpiresAt: ct.ExpiresAt,
			}, nil
		}
		c.log.Warn("dropping undecodable cached token", "key", key)
		_ = c.rdb.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		c.log.Warn("token cache read failed", "error", err)
	}

	t, err := c.next.GetToken(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := c.ttl
	if !t.ExpiresAt.IsZero() {
		remaining := t.ExpiresAt.Sub(c.clock())
		if remaining <= 0 {
			return t, nil
		}
		ttl = min(ttl, remaining)
	}
	payload, err := json.Marshal(cachedToken{AccountID: t.AccountID, Scope: string(t.Scope), ExpiresAt: t.ExpiresAt})
	if err == nil {
		if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			c.log.Warn("token cache write failed", "error", err)
		}
	}
	return t, nil
}
