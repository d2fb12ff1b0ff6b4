package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentorhub/internal/shared/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL 会话令牌默认有效期
const DefaultTokenTTL = 72 * time.Hour

// ErrEmptySecret 未配置签名密钥
var ErrEmptySecret = errors.New("token signing secret is empty")

// TokenReason 令牌校验失败原因
type TokenReason string

const (
	TokenExpired          TokenReason = "EXPIRED"
	TokenInvalidSignature TokenReason = "INVALID_SIGNATURE"
	TokenMalformed        TokenReason = "MALFORMED"
)

// TokenError 令牌校验失败
type TokenError struct {
	Reason TokenReason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", strings.ToLower(string(e.Reason)), e.Err)
	}
	return "token " + strings.ToLower(string(e.Reason))
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// TokenReasonOf 提取令牌失败原因，非令牌错误返回空串
func TokenReasonOf(err error) TokenReason {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

// Claims JWT 声明
type Claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// TokenClaims 签发时嵌入的身份信息
type TokenClaims struct {
	Email string
	Role  model.Role
}

// TokenIssuer HS256 会话令牌签发与校验
//
// 创建后只读，可被多个 goroutine 共享。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer 创建签发器，ttl <= 0 时使用 DefaultTokenTTL
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock 返回使用指定时钟的副本
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *t
	cp.now = now
	return &cp
}

// TTL 令牌有效期
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue 签发令牌，返回令牌串及其过期时间
func (t *TokenIssuer) Issue(accountID string, c TokenClaims) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("issue token: empty subject")
	}
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Email: c.Email,
		Role:  c.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify 校验签名与有效期，失败时返回 *TokenError
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, &TokenError{Reason: TokenMalformed}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, &TokenError{Reason: TokenInvalidSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, &TokenError{Reason: TokenExpired, Err: err}
	case t.signatureMismatch(token):
		// 头部或载荷被篡改到无法解码时，签名同样不再匹配
		return nil, &TokenError{Reason: TokenInvalidSignature, Err: err}
	default:
		return nil, &TokenError{Reason: TokenMalformed, Err: err}
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, &TokenError{Reason: TokenMalformed, Err: errors.New("missing subject")}
	}
	return claims, nil
}

// signatureMismatch 结构完整（三段且签名可解码）但签名段与内容的规范编码不符
//
// 按字符串比较签名段，仅填充位不同的非规范编码同样视为不匹配。
func (t *TokenIssuer) signatureMismatch(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	if sig, err := base64.RawURLEncoding.DecodeString(parts[2]); err != nil || len(sig) == 0 {
		return false
	}
	want, err := jwt.SigningMethodHS256.Sign(parts[0]+"."+parts[1], t.secret)
	if err != nil {
		return false
	}
	return !hmac.Equal([]byte(base64.RawURLEncoding.EncodeToString(want)), []byte(parts[2]))
}
