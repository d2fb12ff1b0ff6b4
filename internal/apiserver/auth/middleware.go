package auth

import (
	"context"
	"net/http"
	"strings"

	"mentorhub/internal/shared/model"
	"mentorhub/pkg/logging"
)

// CookieName 会话 cookie 名
const CookieName = "token"

// Authorizer 校验令牌并返回身份，由 *Service 实现
type Authorizer interface {
	Authorize(ctx context.Context, token string, roles ...model.Role) (*Identity, error)
}

type guardMode int

const (
	guardOptional guardMode = iota
	guardRequired
)

// Guard 路由鉴权模式
//
//   - Required: 令牌缺失/无效返回 401，角色不符返回 403，不进入下游处理器
//   - Optional: 令牌有效时注入身份，否则以匿名身份继续
type Guard struct {
	mode  guardMode
	roles []model.Role
}

// Required 必须认证，roles 非空时还要求角色匹配
func Required(roles ...model.Role) Guard {
	return Guard{mode: guardRequired, roles: roles}
}

// Optional 可选认证
func Optional() Guard {
	return Guard{mode: guardOptional}
}

// IsRequired 是否为必须认证模式
func (g Guard) IsRequired() bool {
	return g.mode == guardRequired
}

// TokenFromRequest 提取令牌：cookie 优先，其次 Authorization: Bearer
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware 创建鉴权中间件
func Middleware(authz Authorizer, guard Guard, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default("auth")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)

			if !guard.IsRequired() && token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := authz.Authorize(r.Context(), token, guard.roles...)
			if err != nil {
				if guard.IsRequired() {
					writeError(w, err)
					return
				}
				if KindOf(err) == KindInternal {
					logger.WithContext(r.Context()).WithError(err).Warn("Optional auth failed, continuing anonymously")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = logging.ContextWithAccountID(ctx, id.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
