package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"mentorhub/internal/shared/cache"
	"mentorhub/internal/shared/model"
	"mentorhub/internal/shared/storage"
	"mentorhub/pkg/logging"

	"github.com/google/uuid"
)

// Options 认证服务可选项
type Options struct {
	// AllowedRoles 自助注册可选的角色，为空时为 mentor、mentee
	AllowedRoles   []model.Role
	PasswordPolicy PasswordPolicy
	// Denylist 非空时登出会吊销令牌
	Denylist cache.TokenDenylist
	// RecheckAccount 鉴权时重新读取账户以拦截已停用账户
	RecheckAccount bool
	Logger         *logging.Logger
	// Recorder 每次操作结束时回调，用于指标统计
	Recorder func(operation, outcome string)
	Now      func() time.Time
}

// Service 认证服务：注册、登录、登出、鉴权
type Service struct {
	store  storage.AccountStore
	hasher Hasher
	tokens *TokenIssuer
	opts   Options
	log    *logging.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// RegisterInput 注册请求
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginInput 登录请求
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput 资料更新请求
type ProfileInput struct {
	Name string `json:"name"`
}

// Result 注册/登录成功结果
type Result struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Account   model.AccountView `json:"account"`
}

// NewService 创建认证服务
func NewService(store storage.AccountStore, hasher Hasher, tokens *TokenIssuer, opts Options) *Service {
	if len(opts.AllowedRoles) == 0 {
		opts.AllowedRoles = []model.Role{model.RoleMentor, model.RoleMentee}
	}
	if opts.PasswordPolicy.MinLength == 0 {
		opts.PasswordPolicy = DefaultPasswordPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default("auth")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		opts:   opts,
		log:    opts.Logger,
	}
}

// ============================================================================
// 注册 / 登录 / 登出
// ============================================================================

// Register 注册新账户并签发令牌
func (s *Service) Register(ctx context.Context, in RegisterInput) (res *Result, err error) {
	defer func() { s.finish(ctx, "register", err) }()

	role, violations := validateRegistration(in, s.opts.AllowedRoles, s.opts.PasswordPolicy)
	if len(violations) > 0 {
		return nil, validationError(violations)
	}
	email := model.NormalizeEmail(in.Email)

	// 预检查仅用于给出友好提示，真正的唯一性由存储层保证
	existing, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if existing != nil {
		return nil, newError(KindConflict, "email already registered")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internalError(err)
	}

	now := s.opts.Now().UTC()
	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: digest,
		Role:         role,
		Status:       model.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, newError(KindConflict, "email already registered")
		}
		return nil, internalError(err)
	}

	s.log.WithContext(ctx).Info("Account registered", "account_id", account.ID, "role", string(account.Role))
	return s.issue(account)
}

// Login 校验凭据并签发新令牌
//
// 邮箱不存在与密码错误返回完全相同的错误。
func (s *Service) Login(ctx context.Context, in LoginInput) (res *Result, err error) {
	defer func() { s.finish(ctx, "login", err) }()

	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, validationError([]string{"email and password are required"})
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if account == nil {
		// 账户不存在时同样执行一次哈希比对，避免响应时间泄露账户是否存在
		s.hasher.Verify(in.Password, s.dummy())
		return nil, invalidCredentials()
	}
	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		return nil, invalidCredentials()
	}
	if account.Suspended() {
		return nil, newError(KindForbidden, "account is suspended")
	}

	now := s.opts.Now().UTC()
	updated, err := s.store.UpdateAccount(ctx, account.ID, storage.AccountUpdate{LastLoginAt: &now})
	if err != nil {
		return nil, internalError(err)
	}
	if updated != nil {
		account = updated
	}
	return s.issue(account)
}

// Logout 登出
//
// 未配置吊销名单时不做任何服务端操作；无效令牌直接忽略。
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer func() { s.finish(ctx, "logout", err) }()

	if s.opts.Denylist == nil || token == "" {
		return nil
	}
	claims, verr := s.tokens.Verify(token)
	if verr != nil || claims.ID == "" {
		return nil
	}
	if err := s.opts.Denylist.Deny(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return internalError(err)
	}
	return nil
}

// Authorize 校验令牌并检查角色，roles 为空时只要求已认证
func (s *Service) Authorize(ctx context.Context, token string, roles ...model.Role) (id *Identity, err error) {
	defer func() { s.finish(ctx, "authorize", err) }()

	if token == "" {
		return nil, newError(KindUnauthenticated, "authentication required")
	}
	claims, verr := s.tokens.Verify(token)
	if verr != nil {
		return nil, &Error{Kind: KindUnauthenticated, Message: "invalid or expired token", Err: verr}
	}

	if s.opts.Denylist != nil && claims.ID != "" {
		denied, err := s.opts.Denylist.IsDenied(ctx, claims.ID)
		if err != nil {
			return nil, internalError(err)
		}
		if denied {
			return nil, newError(KindUnauthenticated, "token has been revoked")
		}
	}

	id = &Identity{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	if s.opts.RecheckAccount {
		account, err := s.store.GetAccountByID(ctx, claims.Subject)
		if err != nil {
			return nil, internalError(err)
		}
		if account == nil {
			return nil, newError(KindUnauthenticated, "account no longer exists")
		}
		if account.Suspended() {
			return nil, newError(KindForbidden, "account is suspended")
		}
		id.Role = account.Role
	}

	if !id.HasRole(roles...) {
		return nil, newError(KindForbidden, "insufficient role")
	}
	return id, nil
}

// ============================================================================
// 账户资料
// ============================================================================

// Me 获取账户视图
func (s *Service) Me(ctx context.Context, accountID string) (view *model.AccountView, err error) {
	defer func() { s.finish(ctx, "me", err) }()

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if account == nil {
		return nil, newError(KindNotFound, "account not found")
	}
	v := account.View()
	return &v, nil
}

// UpdateProfile 更新显示名
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in ProfileInput) (view *model.AccountView, err error) {
	defer func() { s.finish(ctx, "update_profile", err) }()

	if violations := checkName(in.Name); len(violations) > 0 {
		return nil, validationError(violations)
	}
	name := strings.TrimSpace(in.Name)
	return s.update(ctx, accountID, storage.AccountUpdate{Name: &name})
}

// ChangePassword 校验当前口令后设置新口令
func (s *Service) ChangePassword(ctx context.Context, accountID, current, next string) (err error) {
	defer func() { s.finish(ctx, "change_password", err) }()

	if current == "" {
		return validationError([]string{"current password is required"})
	}
	if violations := s.opts.PasswordPolicy.Check(next); len(violations) > 0 {
		return validationError(violations)
	}

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return internalError(err)
	}
	if account == nil {
		return newError(KindNotFound, "account not found")
	}
	if !s.hasher.Verify(current, account.PasswordHash) {
		return newError(KindInvalidCredentials, "current password is incorrect")
	}

	digest, err := s.hasher.Hash(next)
	if err != nil {
		return internalError(err)
	}
	_, err = s.update(ctx, accountID, storage.AccountUpdate{PasswordHash: &digest})
	return err
}

// SetStatus 启用或停用账户（管理员操作）
func (s *Service) SetStatus(ctx context.Context, accountID string, status model.AccountStatus) (view *model.AccountView, err error) {
	defer func() { s.finish(ctx, "set_status", err) }()

	if !status.Valid() {
		return nil, validationError([]string{"status must be one of: active, suspended"})
	}
	return s.update(ctx, accountID, storage.AccountUpdate{Status: &status})
}

// EnsureAdmin 确保管理员账户存在（启动时调用）
//
// 邮箱已存在但角色不是 admin 时提升为 admin；未配置时跳过。
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if violations := checkEmail(email); len(violations) > 0 {
		return validationError(violations)
	}

	existing, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return internalError(err)
	}
	if existing != nil {
		if existing.Role != model.RoleAdmin {
			role := model.RoleAdmin
			if _, err := s.store.UpdateAccount(ctx, existing.ID, storage.AccountUpdate{Role: &role}); err != nil {
				return internalError(err)
			}
			s.log.Info("Upgraded account to admin", "account_id", existing.ID)
		}
		return nil
	}

	if violations := s.opts.PasswordPolicy.Check(password); len(violations) > 0 {
		return validationError(violations)
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return internalError(err)
	}
	now := s.opts.Now().UTC()
	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Admin",
		PasswordHash: digest,
		Role:         model.RoleAdmin,
		Status:       model.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		// 多实例同时启动时由其他实例创建
		if errors.Is(err, storage.ErrDuplicate) {
			return nil
		}
		return internalError(err)
	}
	s.log.Info("Created admin account", "account_id", account.ID)
	return nil
}

// ============================================================================
// 内部辅助
// ============================================================================

func (s *Service) issue(account *model.Account) (*Result, error) {
	token, expiresAt, err := s.tokens.Issue(account.ID, TokenClaims{Email: account.Email, Role: account.Role})
	if err != nil {
		return nil, internalError(err)
	}
	return &Result{Token: token, ExpiresAt: expiresAt, Account: account.View()}, nil
}

func (s *Service) update(ctx context.Context, accountID string, upd storage.AccountUpdate) (*model.AccountView, error) {
	account, err := s.store.UpdateAccount(ctx, accountID, upd)
	if err != nil {
		return nil, internalError(err)
	}
	if account == nil {
		return nil, newError(KindNotFound, "account not found")
	}
	view := account.View()
	return &view, nil
}

// dummy 账户不存在时用于比对的摘要
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.log.WithError(err).Warn("Failed to prepare dummy digest")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

// finish 记录指标与日志，INTERNAL 错误的底层原因只在这里落日志
func (s *Service) finish(ctx context.Context, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(KindOf(err)))
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder(operation, outcome)
	}

	logger := s.log.WithContext(ctx)
	switch {
	case err == nil:
		// 鉴权和读取资料每个请求都会发生，成功时不记录
		if operation != "authorize" && operation != "me" {
			logger.AuthEventLog(operation, outcome)
		}
	case KindOf(err) == KindInternal:
		logger.WithError(err).AuthEventLog(operation, "error")
	default:
		logger.Debug("Auth event", "action", operation, "outcome", outcome)
	}
}
