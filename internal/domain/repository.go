package domain

import (
	"context"
	"time"
)

// StoredCredential is the durable form of a browser session's bearer token.
// Sealed holds the encrypted token, never the plaintext.
type StoredCredential struct {
	SessionID string
	Sealed    []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the credential is past its expiry at now
func (c *StoredCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// CredentialRepository defines durable storage for session credentials
type CredentialRepository interface {
	// Get returns the credential for a session or ErrCredentialNotFound
	Get(ctx context.Context, sessionID string) (*StoredCredential, error)

	// Put creates or replaces the credential for a session
	Put(ctx context.Context, cred *StoredCredential) error

	// Delete removes the credential for a session; deleting a missing one is not an error
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes every credential expired at now and reports how many
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Ping checks that the storage is reachable
	Ping(ctx context.Context) error
}
