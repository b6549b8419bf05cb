package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker is the token deny-list consulted on every authenticated request.
// Entries only need to live until the token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker keeps revoked JTIs in process memory. It does not survive
// restarts and is not shared between replicas.
type MemoryRevoker struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRevoker starts a background goroutine that drops expired entries
// every interval. Call Close to stop it.
func NewMemoryRevoker(interval time.Duration) *MemoryRevoker {
	r := &MemoryRevoker{
		entries: make(map[string]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go r.cleanupLoop(interval)
	return r
}

func (r *MemoryRevoker) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[jti] = expiresAt
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[jti]
	return ok, nil
}

// Len returns the number of tracked entries.
func (r *MemoryRevoker) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *MemoryRevoker) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *MemoryRevoker) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *MemoryRevoker) cleanup() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for jti, exp := range r.entries {
		if now.After(exp) {
			delete(r.entries, jti)
		}
	}
}

// RedisRevoker stores revoked JTIs as keys that expire with the token.
type RedisRevoker struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisRevoker(rdb redis.Cmdable) *RedisRevoker {
	return &RedisRevoker{rdb: rdb, now: time.Now}
}

func revokedKey(jti string) string { return "revoked_token:" + jti }

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
