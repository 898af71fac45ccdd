package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	d := NewTokenDenylist(client)
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.TTL(denylistPrefix+"jti-1") > 0)

	// Expired tokens are not worth storing.
	require.NoError(t, d.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(denylistPrefix+"jti-2"))

	mr.FastForward(2 * time.Minute)
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenDenylist_WithoutRedis(t *testing.T) {
	d := NewTokenDenylist(nil)
	ctx := context.Background()
	assert.NoError(t, d.Revoke(ctx, "jti", time.Now().Add(time.Hour)))
	revoked, err := d.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenDenylist_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	mr.Close()

	_, err = NewTokenDenylist(client).IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client := Connect(context.Background(), "redis://"+mr.Addr())
	require.NotNil(t, client)
	_ = client.Close()

	assert.Nil(t, Connect(context.Background(), "redis://%zz"))
}
