package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"mentorhub/internal/shared/model"
	"mentorhub/internal/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	dbName := "mentorhub_test"
	s, err := NewStore(uri, dbName)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	// 清空测试数据库
	ctx := context.Background()
	if err := s.db.Drop(ctx); err != nil {
		t.Fatalf("Failed to drop test database: %v", err)
	}
	// 重新创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})

	return s
}

func newAccount(id, email string) *model.Account {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Account{
		ID:           id,
		Email:        email,
		Name:         "Ada",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         model.RoleMentor,
		Status:       model.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAccountCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	acc := newAccount("acc-001", "ada@x.com")
	require.NoError(t, s.CreateAccount(ctx, acc))

	// 重复邮箱
	err := s.CreateAccount(ctx, newAccount("acc-002", "ada@x.com"))
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := s.GetAccountByEmail(ctx, "ada@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acc-001", got.ID)
	assert.Equal(t, model.RoleMentor, got.Role)

	got, err = s.GetAccountByID(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)

	name := "Ada L."
	login := time.Now().UTC().Truncate(time.Millisecond)
	got, err = s.UpdateAccount(ctx, "acc-001", storage.AccountUpdate{Name: &name, LastLoginAt: &login})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, name, got.Name)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, login.Equal(*got.LastLoginAt))

	got, err = s.UpdateAccount(ctx, "nonexistent", storage.AccountUpdate{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, got)
}
