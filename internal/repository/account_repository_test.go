package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-hub-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

var accountRowColumns = []string{"id", "service", "username", "sealed_password", "display_name", "created_at", "updated_at"}

func TestAccountRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT id, service, username").
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow("acc-1", "SKOLAE", "jdoe", "sealed", "Jane", now, now))

	account, err := repo.FindByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, models.ServiceSkolae, account.Service)
	assert.Equal(t, "sealed", account.SealedPassword)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByServiceUsernameMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("FROM school_accounts WHERE service = \\$1 AND username = \\$2").
		WithArgs(models.ServiceSkolae, "jdoe").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByServiceUsername(context.Background(), models.ServiceSkolae, "jdoe")
	assert.True(t, IsNotFound(err))
}

func TestAccountRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO school_accounts").
		WithArgs("acc-1", models.ServiceSkolae, "jdoe", "sealed", "Jane", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	account := &models.Account{ID: "acc-1", Service: models.ServiceSkolae, Username: "jdoe", SealedPassword: "sealed", DisplayName: "Jane"}
	require.NoError(t, repo.Upsert(context.Background(), account))
	assert.False(t, account.CreatedAt.IsZero())
	assert.Equal(t, account.CreatedAt, account.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("DELETE FROM school_accounts").WithArgs("acc-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM school_accounts").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "acc-1"))
	assert.True(t, IsNotFound(repo.Delete(context.Background(), "missing")))
}

func TestAccountRepositoryListIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT id FROM school_accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("acc-1").AddRow("acc-2"))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1", "acc-2"}, ids)
}
