// Package sessions tracks revoked access tokens so a logout takes effect
// before the token expires.
package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blacklist:access:"

// Blacklist is a Redis-backed revocation list. A Blacklist without a client
// (or a nil *Blacklist) accepts every token and ignores revocations.
type Blacklist struct {
	client *redis.Client
}

// NewBlacklist returns a Blacklist over client; client may be nil.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// Enabled reports whether revocations are persisted.
func (b *Blacklist) Enabled() bool {
	return b != nil && b.client != nil
}

// Revoke stores token for ttl. A non-positive ttl means the token already expired.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if !b.Enabled() || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, keyPrefix+token, "1", ttl).Err()
}

// IsRevoked returns true when the token exists in the blacklist.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !b.Enabled() {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
