package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-hub-api/internal/models"
)

const homeworkColumns = `id, account_id, subject, content, due_date, is_done, evaluation, custom, kid_name, created_at, updated_at`

// HomeworkRepository persists homework entries.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs the repository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// List returns a page of homework ordered by due date, plus the total count.
func (r *HomeworkRepository) List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, int, error) {
	conditions := []string{"account_id = $1"}
	args := []interface{}{filter.AccountID}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)))
	}
	if filter.IsDone != nil {
		args = append(args, *filter.IsDone)
		conditions = append(conditions, fmt.Sprintf("is_done = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM homework`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count homework: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`SELECT %s FROM homework%s ORDER BY due_date ASC, created_at ASC LIMIT $%d OFFSET $%d`,
		homeworkColumns, where, len(args)-1, len(args))

	var items []models.Homework
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list homework: %w", err)
	}
	return items, total, nil
}

// FindByID fetches one entry scoped to its account.
func (r *HomeworkRepository) FindByID(ctx context.Context, accountID, id string) (*models.Homework, error) {
	query := `SELECT ` + homeworkColumns + ` FROM homework WHERE id = $1 AND account_id = $2`
	var hw models.Homework
	if err := r.db.GetContext(ctx, &hw, query, id, accountID); err != nil {
		return nil, err
	}
	return &hw, nil
}

// Create inserts a new entry.
func (r *HomeworkRepository) Create(ctx context.Context, hw *models.Homework) error {
	const query = `INSERT INTO homework (id, account_id, subject, content, due_date, is_done, evaluation, custom, kid_name, created_at, updated_at)
VALUES (:id, :account_id, :subject, :content, :due_date, :is_done, :evaluation, :custom, :kid_name, :created_at, :updated_at)`
	now := time.Now().UTC()
	hw.CreatedAt = now
	hw.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, query, hw); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// Update rewrites the editable fields.
func (r *HomeworkRepository) Update(ctx context.Context, hw *models.Homework) error {
	const query = `UPDATE homework SET subject = :subject, content = :content, due_date = :due_date,
is_done = :is_done, evaluation = :evaluation, updated_at = :updated_at
WHERE id = :id AND account_id = :account_id`
	hw.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, query, hw)
	if err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	return expectOneRow(res, "update homework")
}

// SetDone toggles completion.
func (r *HomeworkRepository) SetDone(ctx context.Context, accountID, id string, done bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE homework SET is_done = $1, updated_at = $2 WHERE id = $3 AND account_id = $4`,
		done, time.Now().UTC(), id, accountID)
	if err != nil {
		return fmt.Errorf("set homework done: %w", err)
	}
	return expectOneRow(res, "set homework done")
}

// Delete removes an entry.
func (r *HomeworkRepository) Delete(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM homework WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	return expectOneRow(res, "delete homework")
}

func expectOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
