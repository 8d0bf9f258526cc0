package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/cache"
)

func TestTokenStore_Revoke(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	defer c.Close()
	store := NewTokenStore(c)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// the entry lives exactly as long as the token would have
	mr.FastForward(time.Hour + time.Second)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenStore_SkipsExpiredTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	defer c.Close()
	store := NewTokenStore(c)

	require.NoError(t, store.Revoke(context.Background(), "jti-2", 0))
	assert.Empty(t, mr.Keys())
}

func TestTokenStore_FailsOpenWithoutRedis(t *testing.T) {
	store := NewTokenStore(nil)

	require.NoError(t, store.Revoke(context.Background(), "jti-3", time.Hour))
	revoked, err := store.IsRevoked(context.Background(), "jti-3")
	require.NoError(t, err)
	assert.False(t, revoked)
}
