package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/scholar-spark/auth-service/pkg/database"
)

// TokenDenylist tracks rotated refresh tokens in Redis so a replayed token
// from before rotation is rejected for the rest of its lifetime. Tokens are
// keyed by their SHA-256 digest; the raw token never reaches Redis.
type TokenDenylist struct {
	redis *database.Redis
}

// NewTokenDenylist creates a new token denylist
func NewTokenDenylist(redis *database.Redis) *TokenDenylist {
	return &TokenDenylist{redis: redis}
}

// Add records a token as revoked until its natural expiry
func (s *TokenDenylist) Add(ctx context.Context, token string, expiry time.Duration) error {
	key := denylistKey(token)
	if err := s.redis.Client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to denylist token: %w", err)
	}
	return nil
}

// Contains reports whether a token has been revoked
func (s *TokenDenylist) Contains(ctx context.Context, token string) (bool, error) {
	key := denylistKey(token)
	exists, err := s.redis.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token denylist: %w", err)
	}
	return exists > 0, nil
}

func denylistKey(token string) string {
	digest := sha256.Sum256([]byte(token))
	return fmt.Sprintf("denylist:token:%s", hex.EncodeToString(digest[:]))
}
