package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scholar-spark/auth-service/pkg/database"
	"go.uber.org/zap"
)

// RateLimiter guards sensitive actions with a fixed-window counter per
// (action, identifier) pair. Window expiry rides on Redis key TTLs, so
// stale counters clean themselves up.
type RateLimiter struct {
	redis  *database.Redis
	logger *zap.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{redis: redis, logger: logger}
}

// Allow checks and counts an attempt. It fails open: when the counter
// backend is unreachable the attempt is allowed.
func (r *RateLimiter) Allow(ctx context.Context, action, identifier string, maxAttempts int, window time.Duration) bool {
	key := fmt.Sprintf("ratelimit:%s:%s", action, identifier)

	current, err := r.redis.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		// First attempt in this window
		if err := r.redis.Client.Set(ctx, key, 1, window).Err(); err != nil {
			r.logger.Warn("rate limiter backend unavailable, allowing request",
				zap.String("key", key), zap.Error(err))
		}
		return true
	}
	if err != nil {
		r.logger.Warn("rate limiter backend unavailable, allowing request",
			zap.String("key", key), zap.Error(err))
		return true
	}

	count, err := strconv.Atoi(current)
	if err != nil {
		r.logger.Warn("rate limiter counter corrupted, allowing request",
			zap.String("key", key), zap.String("value", current))
		return true
	}

	if count >= maxAttempts {
		return false
	}

	if err := r.redis.Client.Incr(ctx, key).Err(); err != nil {
		r.logger.Warn("failed to increment rate limit counter",
			zap.String("key", key), zap.Error(err))
	}

	return true
}
