// Package idempotency remembers which aggregate a client-supplied
// Idempotency-Key produced so a retried create returns the original result.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pendingMarker = "pending"
	sweepInterval = time.Minute
)

// ErrInFlight is returned when a key is reserved but its request has not finished.
var ErrInFlight = errors.New("idempotency key is in use by a request still in progress")

type Store interface {
	// Reserve claims key. It returns the stored result id when the key already
	// completed, ErrInFlight when another request holds it, or "" when the caller
	// now owns the key.
	Reserve(ctx context.Context, key string, ttl time.Duration) (string, error)
	Complete(ctx context.Context, key, resultID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Key scopes a client key to an operation and principal.
func Key(scope, principal, clientKey string) string {
	return fmt.Sprintf("idempotent-key:%s:%s:%s", scope, principal, clientKey)
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return "", nil
	}

	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		return s.Reserve(ctx, key, ttl)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return "", ErrInFlight
	}
	return val, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, resultID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, resultID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the single-process Store used when Redis is not configured.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now, lastSweep: time.Now()}
}

// sweep drops expired keys at most once per sweepInterval. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}

func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.value == pendingMarker {
			return "", ErrInFlight
		}
		return e.value, nil
	}

	s.entries[key] = entry{value: pendingMarker, expiresAt: now.Add(ttl)}
	return "", nil
}

func (s *MemoryStore) Complete(_ context.Context, key, resultID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: resultID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
