package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations invalidates session tokens before they expire. A single token
// is revoked on sign-out; all of a user's tokens when the account is purged.
type Revocations interface {
	// Revoke rejects the token with this id for ttl
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// RevokeUser rejects every token of userID issued up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// Check reports ErrTokenRevoked when claims were revoked either way
func Check(ctx context.Context, r Revocations, claims *Claims) error {
	if r == nil {
		return nil
	}
	revoked, err := r.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = r.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

const revocationPrefix = "pocketbook:revoked:"

// RedisRevocations stores revocations in Redis with TTLs
type RedisRevocations struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocations creates revocations on an existing client
func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, now: time.Now}
}

func tokenKey(id string) string    { return revocationPrefix + "token:" + id }
func userKey(userID string) string { return revocationPrefix + "user:" + userID }

// Revoke implements Revocations
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, tokenKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements Revocations
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, tokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// RevokeUser stores the revocation time; tokens issued at or before it are rejected
func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, userKey(userID), r.now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// IsUserRevoked implements Revocations
func (r *RedisRevocations) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, userKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user revocation: %w", err)
	}
	at, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation time %q: %w", raw, err)
	}
	return issuedAt.Unix() <= at, nil
}

var _ Revocations = (*RedisRevocations)(nil)

// MemoryRevocations keeps revocations in process.
// Not shared between server instances.
type MemoryRevocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time // id -> expiry of the entry
	users  map[string]time.Time // user -> revocation time
	now    func() time.Time
}

// NewMemoryRevocations creates an empty in-process revocation set
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		tokens: make(map[string]time.Time),
		users:  make(map[string]time.Time),
		now:    time.Now,
	}
}

// Revoke implements Revocations
func (r *MemoryRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenID] = r.now().Add(ttl)
	return nil
}

// IsRevoked implements Revocations
func (r *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.tokens[tokenID]
	if !ok {
		return false, nil
	}
	if r.now().After(until) {
		delete(r.tokens, tokenID)
		return false, nil
	}
	return true, nil
}

// RevokeUser implements Revocations
func (r *MemoryRevocations) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = r.now()
	return nil
}

// IsUserRevoked implements Revocations. Compared at second precision, as
// token timestamps are.
func (r *MemoryRevocations) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	return issuedAt.Unix() <= at.Unix(), nil
}

var _ Revocations = (*MemoryRevocations)(nil)
