// Package server HTTP 服务组装：路由、中间件、健康检查与指标
//
// 文件组织：
//   - common.go: Handler 定义与通用工具函数
//   - handler.go: 路由与中间件链
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mentorhub/internal/apiserver/auth"
	"mentorhub/pkg/logging"
)

// Pinger 可选的依赖健康检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到认证处理器
//   - 组装请求日志、指标、CORS 中间件
//   - 提供健康检查
type Handler struct {
	authHandler *auth.Handler
	metrics     *Metrics
	log         *logging.Logger
	pingers     map[string]Pinger
}

// NewHandler 创建 Handler 实例
func NewHandler(authHandler *auth.Handler, metrics *Metrics, logger *logging.Logger) *Handler {
	if metrics == nil {
		metrics = NewMetrics("api")
	}
	if logger == nil {
		logger = logging.Default("api-server")
	}
	return &Handler{
		authHandler: authHandler,
		metrics:     metrics,
		log:         logger,
		pingers:     make(map[string]Pinger),
	}
}

// AddHealthCheck 注册健康检查依赖
func (h *Handler) AddHealthCheck(name string, p Pinger) {
	h.pingers[name] = p
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 所有依赖可达时返回 200 {"status":"ok"}，否则返回 503 并列出失败的依赖。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("Health check failed", "dependency", name)
			failed[name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
