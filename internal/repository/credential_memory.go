package repository

import (
	"context"
	"sync"
	"time"

	"entrepreneursim/internal/domain"
)

// MemoryCredentialRepository keeps credentials in process memory.
// Sessions do not survive a restart with this store.
type MemoryCredentialRepository struct {
	mu    sync.RWMutex
	creds map[string]domain.StoredCredential
}

// NewMemoryCredentialRepository creates an empty in-memory store
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{creds: make(map[string]domain.StoredCredential)}
}

// Get retrieves the credential for a session
func (r *MemoryCredentialRepository) Get(ctx context.Context, sessionID string) (*domain.StoredCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.creds[sessionID]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	cred.Sealed = append([]byte(nil), cred.Sealed...)
	return &cred, nil
}

// Put creates or replaces the credential for a session
func (r *MemoryCredentialRepository) Put(ctx context.Context, cred *domain.StoredCredential) error {
	stored := *cred
	stored.Sealed = append([]byte(nil), cred.Sealed...)

	r.mu.Lock()
	r.creds[cred.SessionID] = stored
	r.mu.Unlock()
	return nil
}

// Delete removes the credential for a session
func (r *MemoryCredentialRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.creds, sessionID)
	r.mu.Unlock()
	return nil
}

// DeleteExpired removes credentials expired at now
func (r *MemoryCredentialRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, cred := range r.creds {
		if cred.Expired(now) {
			delete(r.creds, id)
			removed++
		}
	}
	return removed, nil
}

// Ping always succeeds
func (r *MemoryCredentialRepository) Ping(ctx context.Context) error {
	return nil
}
