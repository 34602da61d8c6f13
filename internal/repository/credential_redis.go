package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"entrepreneursim/internal/domain"
)

const credentialKeyPrefix = "entrepreneursim:session:"

// RedisCredentialRepository stores sealed credentials as JSON values whose
// Redis TTL tracks the credential expiry
type RedisCredentialRepository struct {
	rdb *redis.Client
}

type redisCredential struct {
	Sealed    []byte    `json:"sealed"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisCredentialRepository creates a new repository instance
func NewRedisCredentialRepository(rdb *redis.Client) *RedisCredentialRepository {
	return &RedisCredentialRepository{rdb: rdb}
}

func credentialKey(sessionID string) string {
	return credentialKeyPrefix + sessionID
}

// Get retrieves the credential for a session
func (r *RedisCredentialRepository) Get(ctx context.Context, sessionID string) (*domain.StoredCredential, error) {
	val, err := r.rdb.Get(ctx, credentialKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var stored redisCredential
	if err := json.Unmarshal(val, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &domain.StoredCredential{
		SessionID: sessionID,
		Sealed:    stored.Sealed,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// Put creates or replaces the credential for a session.
// An already expired credential is deleted instead of written.
func (r *RedisCredentialRepository) Put(ctx context.Context, cred *domain.StoredCredential) error {
	var ttl time.Duration
	if !cred.ExpiresAt.IsZero() {
		ttl = time.Until(cred.ExpiresAt)
		if ttl <= 0 {
			return r.Delete(ctx, cred.SessionID)
		}
	}

	b, err := json.Marshal(redisCredential{
		Sealed:    cred.Sealed,
		ExpiresAt: cred.ExpiresAt,
		CreatedAt: cred.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := r.rdb.Set(ctx, credentialKey(cred.SessionID), b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to put credential: %w", err)
	}
	return nil
}

// Delete removes the credential for a session
func (r *RedisCredentialRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, credentialKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis expires keys on its own
func (r *RedisCredentialRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// Ping checks the Redis connection
func (r *RedisCredentialRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
