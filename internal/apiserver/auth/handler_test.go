package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mentorhub/internal/shared/model"
	"mentorhub/internal/shared/storage"
	"mentorhub/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	mux   *http.ServeMux
	store *storage.MemoryStore
	svc   *Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := NewService(store, testHasher, newTestIssuer(t, nil), Options{Logger: logging.Discard()})
	mux := http.NewServeMux()
	NewHandler(svc, false, logging.Discard()).RegisterRoutes(mux)
	return &testServer{mux: mux, store: store, svc: svc}
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func (s *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, response) {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, r)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w, resp
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

// TestHandler_AdaScenario 注册、脱敏响应、错误密码登录
func TestHandler_AdaScenario(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Ada","email":"ADA@x.com","password":"Secret123","role":"mentee"}`)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	assert.True(t, resp.Success)

	var data struct {
		Token   string            `json:"token"`
		Account model.AccountView `json:"account"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "ada@x.com", data.Account.Email)
	assert.NotEmpty(t, data.Token)

	body := w.Body.String()
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "$2a$")

	cookie := sessionCookie(t, w)
	assert.Equal(t, data.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Greater(t, cookie.MaxAge, 0)

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, msgInvalidCredentials, resp.Message)
	assert.Equal(t, string(KindInvalidCredentials), w.Header().Get("X-Error-Kind"))

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@x.com","password":"Secret123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	sessionCookie(t, w)
}

func TestHandler_RegisterErrors(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/register", `{"name":"","email":"bad","password":"x","role":"mentee"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.GreaterOrEqual(t, len(resp.Errors), 3)

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/register", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", resp.Message)

	ok := `{"name":"Ada","email":"ada@x.com","password":"Secret123","role":"mentee"}`
	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", ok)
	require.Equal(t, http.StatusCreated, w.Code)
	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/register", strings.Replace(ok, "ada@x.com", "ADA@X.COM", 1))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", resp.Message)
	assert.Equal(t, 1, s.store.Len())
}

func TestHandler_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Grace","email":"grace@x.com","password":"Secret123","role":"mentor"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	cookie := sessionCookie(t, w)

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := s.do(t, http.MethodGet, "/api/v1/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var view model.AccountView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, "grace@x.com", view.Email)
	assert.Equal(t, model.RoleMentor, view.Role)

	w, resp = s.do(t, http.MethodPatch, "/api/v1/auth/me", `{"name":"Grace Hopper"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, "Grace Hopper", view.Name)

	w, _ = s.do(t, http.MethodPut, "/api/v1/auth/password",
		`{"current_password":"Secret123","new_password":"Better456x"}`, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/logout", "", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// 匿名登出同样成功
	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_AdminSetStatus(t *testing.T) {
	s := newTestServer(t)
	ctx := t.Context()

	require.NoError(t, s.svc.EnsureAdmin(ctx, "root@x.com", "AdminPass1"))
	admin, err := s.svc.Login(ctx, LoginInput{Email: "root@x.com", Password: "AdminPass1"})
	require.NoError(t, err)
	mentee, err := s.svc.Register(ctx, ada())
	require.NoError(t, err)

	adminCookie := &http.Cookie{Name: CookieName, Value: admin.Token}
	menteeCookie := &http.Cookie{Name: CookieName, Value: mentee.Token}
	path := "/api/v1/admin/accounts/" + mentee.Account.ID + "/status"

	w, _ := s.do(t, http.MethodPatch, path, `{"status":"suspended"}`, menteeCookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/admin/accounts/"+admin.Account.ID+"/status", `{"status":"suspended"}`, adminCookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := s.do(t, http.MethodPatch, path, `{"status":"suspended"}`, adminCookie)
	require.Equal(t, http.StatusOK, w.Code)
	var view model.AccountView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, model.AccountStatusSuspended, view.Status)

	w, resp = s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@x.com","password":"Secret123"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account is suspended", resp.Message)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/admin/accounts/missing/status", `{"status":"active"}`, adminCookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteError_InternalHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, internalError(assert.AnError))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(KindInternal), w.Header().Get("X-Error-Kind"))
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.Contains(t, w.Body.String(), `"message":"internal error"`)
}

// TestInternalError_LoggedOnce 内部错误只由 Service 记录一次，响应不含原因
func TestInternalError_LoggedOnce(t *testing.T) {
	cause := "mongo: server selection timeout"
	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, logging.Config{Level: "debug"})

	svc := NewService(&failingStore{err: errors.New(cause)}, testHasher, newTestIssuer(t, nil), Options{Logger: logger})
	mux := http.NewServeMux()
	NewHandler(svc, false, logger).RegisterRoutes(mux)

	body := `{"name":"Ada","email":"ada@x.com","password":"Secret123","role":"mentee"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), cause)
	assert.Equal(t, 1, strings.Count(logs.String(), cause), logs.String())
	assert.Contains(t, logs.String(), "register")
}
