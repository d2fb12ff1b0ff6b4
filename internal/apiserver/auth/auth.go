// Package auth 账户认证：口令哈希、会话令牌、认证服务、HTTP 中间件与处理器
package auth

import (
	"context"
	"time"

	"mentorhub/internal/shared/model"
)

// contextKey context 键类型
type contextKey string

const ctxKeyIdentity contextKey = "auth_identity"

// Identity 令牌校验通过后的身份信息
type Identity struct {
	AccountID string     `json:"account_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	TokenID   string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// HasRole 身份是否属于给定角色之一，roles 为空时恒为 true
func (id *Identity) HasRole(roles ...model.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithIdentity 将身份信息注入 context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFrom 从 context 获取身份信息，匿名请求返回 nil
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKeyIdentity).(*Identity)
	return id
}
