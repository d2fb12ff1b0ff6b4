package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"mentorhub/internal/shared/model"
	"mentorhub/pkg/logging"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Handler 认证 HTTP 处理器
type Handler struct {
	svc          *Service
	cookieSecure bool
	log          *logging.Logger
}

// NewHandler 创建认证处理器
func NewHandler(svc *Service, cookieSecure bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default("auth")
	}
	return &Handler{svc: svc, cookieSecure: cookieSecure, log: logger}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	optional := Middleware(h.svc, Optional(), h.log)
	required := Middleware(h.svc, Required(), h.log)
	adminOnly := Middleware(h.svc, Required(model.RoleAdmin), h.log)

	mux.HandleFunc("POST /api/v1/auth/register", h.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.Handle("POST /api/v1/auth/logout", optional(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /api/v1/auth/me", required(http.HandlerFunc(h.Me)))
	mux.Handle("PATCH /api/v1/auth/me", required(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("PUT /api/v1/auth/password", required(http.HandlerFunc(h.ChangePassword)))
	mux.Handle("PATCH /api/v1/admin/accounts/{id}/status", adminOnly(http.HandlerFunc(h.SetStatus)))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

// envelope 统一响应结构
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 账户注册
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeSuccess(w, http.StatusCreated, "account registered", res)
}

// Login 账户登录
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeSuccess(w, http.StatusOK, "logged in", res)
}

// Logout 登出：始终清除 cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), TokenFromRequest(r))
	h.clearSessionCookie(w)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "logged out", nil)
}

// Me 当前账户信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	view, err := h.svc.Me(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", view)
}

// UpdateProfile 更新当前账户资料
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileInput
	if !h.decode(w, r, &req) {
		return
	}
	id := IdentityFrom(r.Context())
	view, err := h.svc.UpdateProfile(r.Context(), id.AccountID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "profile updated", view)
}

// ChangePassword 修改密码
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := IdentityFrom(r.Context())
	if err := h.svc.ChangePassword(r.Context(), id.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

// SetStatus 管理员启用/停用账户
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	targetID := r.PathValue("id")
	status := model.AccountStatus(req.Status)
	if id := IdentityFrom(r.Context()); id.AccountID == targetID && status == model.AccountStatusSuspended {
		writeError(w, validationError([]string{"cannot suspend your own account"}))
		return
	}
	view, err := h.svc.SetStatus(r.Context(), targetID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "status updated", view)
}

// ============================================================================
// 工具函数
// ============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, &Error{Kind: KindValidation, Message: "invalid request body", Err: err})
		return false
	}
	return true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError 按错误分类写出响应；INTERNAL 只返回通用文案
//
// 内部错误的原因由 Service 按操作记录日志，这里不再重复记录。
func writeError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	resp := envelope{Success: false, Message: "internal error"}

	var e *Error
	if kind != KindInternal && errors.As(err, &e) {
		resp.Message = e.Message
		resp.Errors = e.Details
	}
	w.Header().Set("X-Error-Kind", string(kind))
	writeJSON(w, StatusCode(kind), resp)
}
