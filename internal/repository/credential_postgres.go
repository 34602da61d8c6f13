package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"entrepreneursim/internal/domain"
)

// PostgresCredentialRepository stores sealed credentials in the web_sessions table
type PostgresCredentialRepository struct {
	db *pgxpool.Pool
}

// NewPostgresCredentialRepository creates a new repository instance
func NewPostgresCredentialRepository(db *pgxpool.Pool) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

// Get retrieves the credential for a session
func (r *PostgresCredentialRepository) Get(ctx context.Context, sessionID string) (*domain.StoredCredential, error) {
	var (
		cred      domain.StoredCredential
		expiresAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT session_id, sealed_token, expires_at, created_at
		FROM web_sessions
		WHERE session_id = $1
	`, sessionID).Scan(&cred.SessionID, &cred.Sealed, &expiresAt, &cred.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if expiresAt.Valid {
		cred.ExpiresAt = expiresAt.Time
	}

	return &cred, nil
}

// Put creates or replaces the credential for a session
func (r *PostgresCredentialRepository) Put(ctx context.Context, cred *domain.StoredCredential) error {
	expiresAt := pgtype.Timestamptz{Time: cred.ExpiresAt, Valid: !cred.ExpiresAt.IsZero()}
	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO web_sessions (session_id, sealed_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id) DO UPDATE SET
			sealed_token = EXCLUDED.sealed_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, cred.SessionID, cred.Sealed, expiresAt, createdAt)

	if err != nil {
		return fmt.Errorf("failed to put credential: %w", err)
	}

	return nil
}

// Delete removes the credential for a session
func (r *PostgresCredentialRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM web_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// DeleteExpired removes credentials expired at now
func (r *PostgresCredentialRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM web_sessions
		WHERE expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired credentials: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection
func (r *PostgresCredentialRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
