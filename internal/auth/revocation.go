package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker is the access-token revocation set.  Entries live only until the
// token they shadow would have expired anyway, so the set stays bounded by
// the number of logouts inside one access-token lifetime, never by the full
// token history.
type Revoker interface {
	// Revoke deny-lists a token id for the given remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether a token id has been deny-listed.
	IsRevoked(ctx context.Context, jti string) bool
}

// NewRevoker picks the Redis-backed set when a client is available and the
// in-process set otherwise.  The in-process fallback is per-node and empties
// on restart; with stateless signed tokens that is an accepted degradation,
// not silent data loss, and it is logged at startup.
func NewRevoker(rdb *redis.Client) Revoker {
	if rdb != nil {
		return &redisRevoker{rdb: rdb}
	}
	return NewMemoryRevoker()
}

const revokePrefix = "revoked_jti:"

// redisRevoker stores one key per revoked jti with a TTL, so Redis prunes
// entries on its own.  Lookup errors fail open: a Redis outage must not lock
// every authenticated user out, and tokens still age out naturally.
type redisRevoker struct {
	rdb *redis.Client
}

func (r *redisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already past natural expiry, nothing to shadow
	}
	return r.rdb.SetEx(ctx, revokePrefix+jti, "1", ttl).Err()
}

func (r *redisRevoker) IsRevoked(ctx context.Context, jti string) bool {
	n, err := r.rdb.Exists(ctx, revokePrefix+jti).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MemoryRevoker is a mutex-protected jti set with expiry timestamps.  A
// background ticker prunes expired entries so the map cannot grow past the
// working set of recently revoked tokens.
type MemoryRevoker struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> moment the entry may be dropped
}

// NewMemoryRevoker builds the in-process set and starts its prune loop.
func NewMemoryRevoker() *MemoryRevoker {
	m := &MemoryRevoker{entries: make(map[string]time.Time)}
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for range t.C {
			m.prune(time.Now())
		}
	}()
	return m
}

func (m *MemoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[jti] = time.Now().Add(ttl)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, jti string) bool {
	m.mu.RLock()
	until, ok := m.entries[jti]
	m.mu.RUnlock()
	return ok && time.Now().Before(until)
}

func (m *MemoryRevoker) prune(now time.Time) {
	m.mu.Lock()
	for jti, until := range m.entries {
		if now.After(until) {
			delete(m.entries, jti)
		}
	}
	m.mu.Unlock()
}
