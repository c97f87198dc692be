package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore tracks the ids (jti) of tokens that must no longer be
// accepted even though their signature and exp are still valid.  Consume is
// the single atomic "check-not-revoked and revoke" primitive: two concurrent
// rotations presenting the same refresh token race on Consume and exactly
// one wins.  Entries expire with the underlying token's natural exp so the
// store stays bounded.
//
// Store failures must be treated as "revoked" by callers (fail closed);
// trusting a token the store could not vouch for would reduce rotation to a
// no-op.
type RevocationStore interface {
	// Consume marks jti revoked for ttl and reports whether this call was
	// the one that revoked it.  false with a nil error means the jti was
	// already revoked (a replay).
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)

	// IsRevoked reports whether jti has been revoked and not yet expired.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore is the single-instance implementation: a mutex-backed
// jti -> expiry map with lazy purge.  Horizontal scaling requires the Redis
// store instead, since each process would otherwise hold its own view of
// what has been revoked.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

// Consume revokes jti unless it already is.  ttl below zero is clamped to
// zero, which revokes-and-immediately-expires; that still counts as a
// successful consume for the caller.
func (s *MemoryRevocationStore) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)

	if until, ok := s.revoked[jti]; ok && until.After(now) {
		return false, nil
	}
	if ttl < 0 {
		ttl = 0
	}
	s.revoked[jti] = now.Add(ttl)
	return true, nil
}

// IsRevoked reports whether jti is currently revoked.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)

	until, ok := s.revoked[jti]
	return ok && until.After(now), nil
}

// purgeLocked drops entries whose underlying token would have expired
// naturally.  Called under s.mu on every operation; the map only holds jtis
// of refresh tokens consumed within their lifetime, so it stays small.
func (s *MemoryRevocationStore) purgeLocked(now time.Time) {
	for jti, until := range s.revoked {
		if !until.After(now) {
			delete(s.revoked, jti)
		}
	}
}
