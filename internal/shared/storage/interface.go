// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/, repository/
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"
	"time"

	"mentorhub/internal/shared/model"
)

// AccountUpdate 账户部分更新，nil 字段保持不变
//
// UpdatedAt 由存储层在每次更新时写入。
type AccountUpdate struct {
	Name         *string
	PasswordHash *string
	Role         *model.Role
	Status       *model.AccountStatus
	LastLoginAt  *time.Time
}

// Empty 是否没有任何待更新字段
func (u AccountUpdate) Empty() bool {
	return u.Name == nil && u.PasswordHash == nil && u.Role == nil && u.Status == nil && u.LastLoginAt == nil
}

// AccountStore 账户（凭据）存储接口
//
// 邮箱唯一性由存储引擎保证：并发创建同一邮箱时，后到者返回 ErrDuplicate。
// 查询不到时返回 (nil, nil)。
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	UpdateAccount(ctx context.Context, id string, update AccountUpdate) (*model.Account, error)
	Close() error
}
