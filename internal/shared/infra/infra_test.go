package infra

import (
	"context"
	"testing"
	"time"

	"mentorhub/internal/shared/model"
	"mentorhub/internal/shared/storage"
	"mentorhub/internal/shared/storage/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SQLiteWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	infra, err := New(Options{
		DatabaseDriver: "sqlite",
		DatabaseURL:    ":memory:",
		RedisURL:       "redis://" + mr.Addr() + "/0",
	})
	require.NoError(t, err)
	defer infra.Close()

	_, ok := infra.Accounts.(*repository.Store)
	assert.True(t, ok, "sqlite driver should produce a repository store")
	require.NotNil(t, infra.Denylist)

	checks := infra.HealthChecks()
	require.Contains(t, checks, "accounts")
	require.Contains(t, checks, "denylist")
	for name, p := range checks {
		assert.NoError(t, p.Ping(context.Background()), name)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	acc := &model.Account{
		ID: "acc-1", Email: "ada@x.com", Name: "Ada", PasswordHash: "digest",
		Role: model.RoleMentee, Status: model.AccountStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, infra.Accounts.CreateAccount(ctx, acc))
	acc.ID = "acc-2"
	assert.ErrorIs(t, infra.Accounts.CreateAccount(ctx, acc), storage.ErrDuplicate)

	require.NoError(t, infra.Denylist.Deny(ctx, "jti-1", now.Add(time.Minute)))
	denied, err := infra.Denylist.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, denied)
}

func TestNew_WithoutRedis(t *testing.T) {
	infra, err := New(Options{DatabaseDriver: "sqlite", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer infra.Close()

	assert.Nil(t, infra.Denylist)
	assert.NotContains(t, infra.HealthChecks(), "denylist")
}

func TestNew_BadRedisClosesStore(t *testing.T) {
	_, err := New(Options{DatabaseDriver: "sqlite", DatabaseURL: ":memory:", RedisURL: "redis://127.0.0.1:1/0"})
	assert.Error(t, err)
}

func TestMemoryInfrastructure(t *testing.T) {
	infra := NewMemoryInfrastructure()
	assert.NotNil(t, infra.Accounts)
	assert.Empty(t, infra.HealthChecks())
	assert.NoError(t, infra.Close())
}
