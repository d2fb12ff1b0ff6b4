package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mentorhub/internal/shared/model"
	"mentorhub/pkg/logging"

	"github.com/stretchr/testify/assert"
)

// stubAuthorizer 按令牌返回预设结果
type stubAuthorizer struct {
	identities map[string]*Identity
	fail       error
	seen       []string
}

func (s *stubAuthorizer) Authorize(_ context.Context, token string, roles ...model.Role) (*Identity, error) {
	s.seen = append(s.seen, token)
	if s.fail != nil {
		return nil, s.fail
	}
	id, ok := s.identities[token]
	if !ok {
		return nil, newError(KindUnauthenticated, "invalid or expired token")
	}
	if !id.HasRole(roles...) {
		return nil, newError(KindForbidden, "insufficient role")
	}
	return id, nil
}

func newStub() *stubAuthorizer {
	return &stubAuthorizer{identities: map[string]*Identity{
		"mentee-token": {AccountID: "acc-mentee", Role: model.RoleMentee},
		"admin-token":  {AccountID: "acc-admin", Role: model.RoleAdmin},
	}}
}

// identityEcho 下游处理器：返回当前身份
func identityEcho(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if id := IdentityFrom(r.Context()); id != nil {
			w.Header().Set("X-Account", id.AccountID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"none", "", "", ""},
		{"bearer", "", "Bearer abc", "abc"},
		{"bearer lowercase", "", "bearer abc", "abc"},
		{"wrong scheme", "", "Basic abc", ""},
		{"cookie", "xyz", "", "xyz"},
		{"cookie wins over header", "xyz", "Bearer abc", "xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_Required(t *testing.T) {
	tests := []struct {
		name       string
		guard      Guard
		token      string
		wantStatus int
		wantCalled bool
	}{
		{"missing token", Required(), "", http.StatusUnauthorized, false},
		{"invalid token", Required(), "bogus", http.StatusUnauthorized, false},
		{"any role", Required(), "mentee-token", http.StatusNoContent, true},
		{"admin route mentee", Required(model.RoleAdmin), "mentee-token", http.StatusForbidden, false},
		{"admin route admin", Required(model.RoleAdmin), "admin-token", http.StatusNoContent, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			h := Middleware(newStub(), tt.guard, logging.Discard())(identityEcho(&called))

			r := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			if !tt.wantCalled {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestMiddleware_Optional(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		fail        error
		wantAccount string
	}{
		{"anonymous", "", nil, ""},
		{"invalid token proceeds anonymously", "bogus", nil, ""},
		{"valid token attaches identity", "mentee-token", nil, "acc-mentee"},
		{"backend failure proceeds anonymously", "mentee-token", internalError(errors.New("down")), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStub()
			stub.fail = tt.fail
			var called bool
			h := Middleware(stub, Optional(), logging.Discard())(identityEcho(&called))

			r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			if tt.token != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.token})
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.True(t, called)
			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, tt.wantAccount, w.Header().Get("X-Account"))
		})
	}
}

func TestMiddleware_CookiePrecedence(t *testing.T) {
	stub := newStub()
	var called bool
	h := Middleware(stub, Required(model.RoleAdmin), logging.Discard())(identityEcho(&called))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "mentee-token"})
	r.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"mentee-token"}, stub.seen)
	assert.False(t, called)
}
