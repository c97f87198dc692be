package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore keeps revoked jtis in Redis so every instance of the
// app shares one revocation view.  SET NX with a TTL gives the atomic
// consume (first writer wins) and self-purging entries in one round trip.
type RedisRevocationStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRevocationStore(rdb *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{rdb: rdb, prefix: "revoked_jti:"}
}

// Consume sets the jti key if absent.  A false return with nil error means
// another rotation already consumed this token.  Errors propagate so the
// caller can fail closed.
func (s *RedisRevocationStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		// Token is at (or past) its natural exp; keep the marker around
		// briefly so a concurrent replay still loses the race.
		ttl = time.Minute
	}
	return s.rdb.SetNX(ctx, s.prefix+jti, 1, ttl).Result()
}

// IsRevoked checks for the jti key.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
