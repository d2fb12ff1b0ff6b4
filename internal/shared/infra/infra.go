// Package infra 基础设施聚合层
//
// 根据配置创建并聚合外部依赖：
//   - Accounts：账户存储（MongoDB / SQLite / PostgreSQL）
//   - Denylist：令牌吊销名单（Redis，可选）
package infra

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mentorhub/internal/shared/cache"
	"mentorhub/internal/shared/storage"
	"mentorhub/internal/shared/storage/dbutil"
	pgdriver "mentorhub/internal/shared/storage/driver/postgres"
	sqlitedriver "mentorhub/internal/shared/storage/driver/sqlite"
	"mentorhub/internal/shared/storage/mongostore"
	"mentorhub/internal/shared/storage/repository"
)

// Pinger 可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Infrastructure 基础设施聚合结构
type Infrastructure struct {
	// Accounts 账户存储
	Accounts storage.AccountStore

	// Denylist 令牌吊销名单，未启用 Redis 时为 nil
	Denylist cache.TokenDenylist
}

// Options 基础设施配置
type Options struct {
	DatabaseDriver string
	DatabaseURL    string
	DatabaseName   string
	RedisURL       string // 为空时不创建吊销名单
}

// New 按配置创建全部基础设施，任一步失败时关闭已创建的连接
func New(opts Options) (*Infrastructure, error) {
	accounts, err := NewAccountStore(opts.DatabaseDriver, opts.DatabaseURL, opts.DatabaseName)
	if err != nil {
		return nil, err
	}
	infra := &Infrastructure{Accounts: accounts}

	if opts.RedisURL != "" {
		denylist, err := NewRedisDenylist(opts.RedisURL)
		if err != nil {
			_ = accounts.Close()
			return nil, err
		}
		infra.Denylist = denylist
	}
	return infra, nil
}

// NewAccountStore 根据驱动类型创建账户存储
func NewAccountStore(driver, dsn, dbName string) (storage.AccountStore, error) {
	switch dbutil.ParseDriverType(driver) {
	case dbutil.DriverSQLite:
		db, err := sqlitedriver.Open(dsn)
		if err != nil {
			return nil, err
		}
		dialect := sqlitedriver.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		log.Printf("[infra] Account store: sqlite")
		return repository.NewStore(db, dialect), nil

	case dbutil.DriverPostgres:
		db, err := pgdriver.Open(dsn)
		if err != nil {
			return nil, err
		}
		dialect := pgdriver.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		log.Printf("[infra] Account store: postgres")
		return repository.NewStore(db, dialect), nil

	default:
		store, err := mongostore.NewStore(dsn, dbName)
		if err != nil {
			return nil, err
		}
		log.Printf("[infra] Account store: mongodb")
		return store, nil
	}
}

// HealthChecks 返回可探活的依赖
func (i *Infrastructure) HealthChecks() map[string]Pinger {
	checks := make(map[string]Pinger)
	if p, ok := i.Accounts.(Pinger); ok {
		checks["accounts"] = p
	}
	if p, ok := i.Denylist.(Pinger); ok {
		checks["denylist"] = p
	}
	return checks
}

// Close 关闭所有基础设施连接
func (i *Infrastructure) Close() error {
	var errs []error

	if i.Accounts != nil {
		if err := i.Accounts.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if i.Denylist != nil {
		if err := i.Denylist.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NewMemoryInfrastructure 创建内存基础设施（用于测试）
func NewMemoryInfrastructure() *Infrastructure {
	return &Infrastructure{Accounts: storage.NewMemoryStore()}
}
