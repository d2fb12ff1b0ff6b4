package model

import (
	"strings"
	"time"
)

// Role 账户角色
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// AllRoles 全部已知角色
var AllRoles = []Role{RoleAdmin, RoleMentor, RoleMentee}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole 解析角色（忽略大小写与首尾空白），未知角色返回 false
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// AccountStatus 账户状态
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Valid 是否为已知状态
func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusSuspended
}

// Account 注册主体（管理员 / 导师 / 学员）
//
// PasswordHash 不参与 JSON 序列化；对外一律使用 AccountView。
type Account struct {
	ID           string        `json:"id" bson:"_id" db:"id"`
	Email        string        `json:"email" bson:"email" db:"email"`
	Name         string        `json:"name" bson:"name" db:"name"`
	PasswordHash string        `json:"-" bson:"password_hash" db:"password_hash"` // never expose in JSON
	Role         Role          `json:"role" bson:"role" db:"role"`
	Status       AccountStatus `json:"status" bson:"status" db:"status"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time    `json:"last_login_at,omitempty" bson:"last_login_at,omitempty" db:"last_login_at"`
}

// Suspended 账户是否被停用
func (a *Account) Suspended() bool {
	return a.Status == AccountStatusSuspended
}

// AccountView 对外展示的账户视图（不含密码摘要）
type AccountView struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        Role          `json:"role"`
	Status      AccountStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
}

// View 生成脱敏视图
func (a *Account) View() AccountView {
	return AccountView{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// NormalizeEmail 规范化邮箱：去除首尾空白并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
