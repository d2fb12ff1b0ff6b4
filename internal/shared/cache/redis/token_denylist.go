package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"mentorhub/internal/shared/cache"
)

// Deny 吊销令牌，键在令牌过期时自动失效
//
// 已过期的令牌无需记录。
func (s *Store) Deny(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, cache.KeyDeniedToken+tokenID, 1, ttl).Err()
}

// IsDenied 令牌是否已被吊销
func (s *Store) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, cache.KeyDeniedToken+tokenID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
