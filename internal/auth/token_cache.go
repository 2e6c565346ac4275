package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Verifier validates a token and reports when it expires.
type Verifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, time.Time, error)
}

// TokenCache caches validated token -> user id in Redis so repeated requests
// skip signature checks. Entries never outlive the token itself.
// A nil client disables caching.
type TokenCache struct {
	next  Verifier
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

func NewTokenCache(next Verifier, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *TokenCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &TokenCache{next: next, redis: rdb, ttl: ttl, now: time.Now, log: log}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}

func (c *TokenCache) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	if c.redis == nil {
		id, _, err := c.next.Verify(ctx, token)
		return id, err
	}
	key := cacheKey(token)
	raw, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if id, perr := uuid.Parse(raw); perr == nil {
			return id, nil
		}
		_ = c.redis.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		c.log.Warn("token cache read failed", "error", err)
	}

	id, expiresAt, err := c.next.Verify(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	ttl := c.ttl
	if remaining := expiresAt.Sub(c.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl > 0 {
		if err := c.redis.Set(ctx, key, id.String(), ttl).Err(); err != nil {
			c.log.Warn("token cache write failed", "error", err)
		}
	}
	return id, nil
}
