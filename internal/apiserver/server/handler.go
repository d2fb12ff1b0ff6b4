package server

import (
	"net"
	"net/http"
	"time"

	"mentorhub/pkg/logging"

	"github.com/google/uuid"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查与指标:
//   - GET /health  - 服务健康检查
//   - GET /metrics - Prometheus 指标
//
// 认证 (Auth):
//   - POST  /api/v1/auth/register               - 注册
//   - POST  /api/v1/auth/login                  - 登录
//   - POST  /api/v1/auth/logout                 - 登出（可选认证）
//   - GET   /api/v1/auth/me                     - 当前账户
//   - PATCH /api/v1/auth/me                     - 更新资料
//   - PUT   /api/v1/auth/password               - 修改密码
//   - PATCH /api/v1/admin/accounts/{id}/status  - 启用/停用账户（admin）
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", h.metrics.Handler())

	// Auth 路由（鉴权中间件按路由挂载）
	h.authHandler.RegisterRoutes(mux)

	// 中间件链：CORS → 请求日志 → 指标 → 路由
	return corsMiddleware(h.requestLogMiddleware(h.metrics.MetricsMiddleware(mux)))
}

// requestLogMiddleware 为每个请求分配 request_id 并记录访问日志
func (h *Handler) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		h.log.WithContext(ctx).HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP(r))
	})
}

// maxRequestIDLength 客户端传入的 X-Request-ID 最大长度
const maxRequestIDLength = 64

// validRequestID 仅接受长度受限、由字母数字和 - _ . 组成的请求 ID
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
