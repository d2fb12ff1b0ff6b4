// Package cache 缓存层键定义
package cache

// Redis 键前缀
const (
	// KeyDeniedToken 已吊销令牌，后接 jti
	KeyDeniedToken = "auth:denied:"
)
