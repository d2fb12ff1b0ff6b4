// Package storage 提供存储层抽象
//
// mock.go 提供用于测试的内存实现
package storage

import (
	"context"
	"sync"
	"time"

	"mentorhub/internal/shared/model"
)

// ============================================================================
// MemoryStore - 内存 AccountStore 实现（用于测试）
// ============================================================================

// MemoryStore 基于 map 的 AccountStore，邮箱唯一性由内部索引保证
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.Account
	byEmail map[string]string
}

// NewMemoryStore 创建 MemoryStore 实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*model.Account),
		byEmail: make(map[string]string),
	}
}

// CreateAccount 创建账户，ID 或邮箱重复时返回 ErrDuplicate
func (s *MemoryStore) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[account.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return ErrDuplicate
	}
	cp := *account
	s.byID[cp.ID] = &cp
	s.byEmail[cp.Email] = cp.ID
	return nil
}

func (s *MemoryStore) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, id string, update AccountUpdate) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	if update.Name != nil {
		acc.Name = *update.Name
	}
	if update.PasswordHash != nil {
		acc.PasswordHash = *update.PasswordHash
	}
	if update.Role != nil {
		acc.Role = *update.Role
	}
	if update.Status != nil {
		acc.Status = *update.Status
	}
	if update.LastLoginAt != nil {
		t := *update.LastLoginAt
		acc.LastLoginAt = &t
	}
	acc.UpdatedAt = time.Now()
	cp := *acc
	return &cp, nil
}

// Len 账户数量
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Close 关闭存储
func (s *MemoryStore) Close() error {
	return nil
}

// 确保 MemoryStore 实现了 AccountStore 接口
var _ AccountStore = (*MemoryStore)(nil)
