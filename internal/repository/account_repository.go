package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-hub-api/internal/models"
)

const accountColumns = `id, service, username, sealed_password, display_name, created_at, updated_at`

// AccountRepository persists linked school accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs the repository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByID returns the account or sql.ErrNoRows.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM school_accounts WHERE id = $1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByServiceUsername looks up a previously linked login.
func (r *AccountRepository) FindByServiceUsername(ctx context.Context, service models.ServiceKind, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM school_accounts WHERE service = $1 AND username = $2`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, service, username); err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert stores the account, replacing the sealed password and display name
// when the login was already linked.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) error {
	const query = `INSERT INTO school_accounts (id, service, username, sealed_password, display_name, created_at, updated_at)
VALUES (:id, :service, :username, :sealed_password, :display_name, :created_at, :updated_at)
ON CONFLICT (service, username)
DO UPDATE SET sealed_password = EXCLUDED.sealed_password, display_name = EXCLUDED.display_name,
              updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// Delete removes the account. Homework rows cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM school_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectOneRow(res, "delete account")
}

// ListIDs returns every linked account id, oldest first. Used by the
// background warm-up.
func (r *AccountRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM school_accounts ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	return ids, nil
}

// IsNotFound reports whether err is the "no row" sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
