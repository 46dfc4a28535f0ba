package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/school-hub-api/pkg/config"
)

// NewPostgres opens the Postgres pool holding linked accounts and custom homework.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	return db, nil
}

// DSN renders the lib/pq connection string.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// Schema creates the tables owned by this service. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS school_accounts (
	id              TEXT PRIMARY KEY,
	service         TEXT NOT NULL,
	username        TEXT NOT NULL,
	sealed_password TEXT NOT NULL,
	display_name    TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (service, username)
);

CREATE TABLE IF NOT EXISTS homework (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES school_accounts(id) ON DELETE CASCADE,
	subject     TEXT NOT NULL,
	content     TEXT NOT NULL,
	due_date    TIMESTAMPTZ NOT NULL,
	is_done     BOOLEAN NOT NULL DEFAULT FALSE,
	evaluation  BOOLEAN NOT NULL DEFAULT FALSE,
	custom      BOOLEAN NOT NULL DEFAULT TRUE,
	kid_name    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS homework_account_due_idx ON homework (account_id, due_date);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
