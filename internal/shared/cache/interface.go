// Package cache 缓存层抽象接口
//
// 提供临时状态和缓存的存取能力，当前由 Redis 实现。
package cache

import (
	"context"
	"time"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// TokenDenylist 令牌吊销名单
//
// 令牌本身无状态；登出时把 jti 写入名单，保留到令牌原本的过期时间。
type TokenDenylist interface {
	Deny(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
	Close() error
}
