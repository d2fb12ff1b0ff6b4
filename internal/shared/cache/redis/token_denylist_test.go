package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorhub/internal/shared/cache"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	s := NewStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		s.Close()
		mr.Close()
	})
	return mr, s
}

func TestDeny_ThenIsDenied(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()

	denied, err := s.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)

	require.NoError(t, s.Deny(ctx, "jti-1", time.Now().Add(time.Hour)))

	denied, err = s.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, denied)

	ttl := mr.TTL(cache.KeyDeniedToken + "jti-1")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl = %v", ttl)

	// 到期后自动移出名单
	mr.FastForward(time.Hour + time.Second)
	denied, err = s.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)
}

func TestDeny_ExpiredTokenIsNotStored(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Deny(ctx, "jti-old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(cache.KeyDeniedToken+"jti-old"))
}

func TestIsDenied_ConnectionError(t *testing.T) {
	mr, s := newTestStore(t)
	mr.Close()

	_, err := s.IsDenied(context.Background(), "jti-1")
	assert.Error(t, err)
}
