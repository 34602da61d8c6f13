package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/001_web_sessions.sql
var migrationSQL string

// RunMigrations creates the web_sessions table when it is missing
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	log := logrus.WithField("component", "migrations")

	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'web_sessions'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if migrations needed: %w", err)
	}

	if exists {
		log.Debug("Session table present, skipping migrations")
		return nil
	}

	log.Info("Creating session table")
	if _, err := db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations completed")
	return nil
}
