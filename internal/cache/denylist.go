package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
)

const denylistPrefix = "auth:revoked:"

// TokenDenylist records revoked access-token ids until they would have expired.
// A nil client makes every call a no-op.
type TokenDenylist struct {
	rdb *redis.Client
	now func() time.Time
}

// NewTokenDenylist returns a denylist backed by rdb.
func NewTokenDenylist(rdb *redis.Client) *TokenDenylist {
	return &TokenDenylist{rdb: rdb, now: time.Now}
}

// Revoke marks jti as revoked until expiresAt.
func (d *TokenDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if d == nil || d.rdb == nil || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "revoke_token")
	defer span.End()
	return d.rdb.Set(ctx, denylistPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.rdb == nil || jti == "" {
		return false, nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "check_revoked")
	defer span.End()
	err := d.rdb.Get(ctx, denylistPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}
