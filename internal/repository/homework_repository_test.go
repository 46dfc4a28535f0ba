package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-hub-api/internal/models"
)

var homeworkRowColumns = []string{"id", "account_id", "subject", "content", "due_date", "is_done", "evaluation", "custom", "kid_name", "created_at", "updated_at"}

func TestHomeworkRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	from := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	done := false
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM homework WHERE account_id = \\$1 AND due_date >= \\$2 AND due_date <= \\$3 AND is_done = \\$4").
		WithArgs("acc-1", from, to, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY due_date ASC, created_at ASC LIMIT \\$5 OFFSET \\$6").
		WithArgs("acc-1", from, to, false, 2, 2).
		WillReturnRows(sqlmock.NewRows(homeworkRowColumns).
			AddRow("hw-3", "acc-1", "Maths", "Exercice 4", from.Add(48*time.Hour), false, false, true, "Jane", now, now))

	items, total, err := repo.List(context.Background(), models.HomeworkFilter{
		AccountID: "acc-1", From: &from, To: &to, IsDone: &done, Page: 2, PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Exercice 4", items[0].Content)
	assert.True(t, items[0].Custom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery("SELECT COUNT").WithArgs("acc-1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("LIMIT \\$2 OFFSET \\$3").WithArgs("acc-1", 50, 0).WillReturnRows(sqlmock.NewRows(homeworkRowColumns))

	items, total, err := repo.List(context.Background(), models.HomeworkFilter{AccountID: "acc-1"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestHomeworkRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	due := time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO homework").
		WithArgs("hw-1", "acc-1", "Maths", "Exercice 4", due, false, false, true, "Jane", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	hw := &models.Homework{ID: "hw-1", AccountID: "acc-1", Subject: "Maths", Content: "Exercice 4", DueDate: due, Custom: true, KidName: "Jane"}
	require.NoError(t, repo.Create(context.Background(), hw))
	assert.False(t, hw.CreatedAt.IsZero())
}

func TestHomeworkRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec("UPDATE homework SET subject").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Homework{ID: "hw-1", AccountID: "acc-1"})
	assert.True(t, IsNotFound(err))
}

func TestHomeworkRepositorySetDoneAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec("UPDATE homework SET is_done").
		WithArgs(true, sqlmock.AnyArg(), "hw-1", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM homework").
		WithArgs("hw-1", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetDone(context.Background(), "acc-1", "hw-1", true))
	require.NoError(t, repo.Delete(context.Background(), "acc-1", "hw-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM homework WHERE id = \\$1 AND account_id = \\$2").
		WithArgs("hw-1", "acc-1").
		WillReturnRows(sqlmock.NewRows(homeworkRowColumns).
			AddRow("hw-1", "acc-1", "Maths", "Exercice 4", now, true, false, true, "Jane", now, now))

	hw, err := repo.FindByID(context.Background(), "acc-1", "hw-1")
	require.NoError(t, err)
	assert.True(t, hw.IsDone)
}
