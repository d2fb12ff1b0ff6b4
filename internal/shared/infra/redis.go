// Package infra Redis 基础设施初始化
package infra

import (
	"fmt"

	cacheredis "mentorhub/internal/shared/cache/redis"
)

// NewRedisDenylist 从 URL 创建基于 Redis 的令牌吊销名单
func NewRedisDenylist(redisURL string) (*cacheredis.Store, error) {
	store, err := cacheredis.NewStoreFromURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("token denylist: %w", err)
	}
	return store, nil
}
