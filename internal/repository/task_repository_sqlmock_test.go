package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (TaskRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewTaskRepository(db), mock
}

func TestDelete_RollsBackWhenReparentFails(t *testing.T) {
	repo, mock := newMockRepository(t)
	taskID := "6f1c7c4e-2f4a-4a8e-9d1b-3c2f6a1e9b10"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `tasks`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "owner_id", "parent_id"}).
			AddRow(taskID, "Task", "created", 1, models.RootTaskID))
	mock.ExpectExec("UPDATE `tasks` SET `parent_id`").
		WillReturnError(errors.New("lock wait timeout exceeded"))
	mock.ExpectRollback()

	deleted, err := repo.Delete(context.Background(), taskID, 1)

	require.Error(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_CommitsReparentAndDelete(t *testing.T) {
	repo, mock := newMockRepository(t)
	taskID := "6f1c7c4e-2f4a-4a8e-9d1b-3c2f6a1e9b10"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `tasks`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "owner_id", "parent_id"}).
			AddRow(taskID, "Task", "created", 1, models.RootTaskID))
	mock.ExpectExec("UPDATE `tasks` SET `parent_id`").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM `tasks`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), taskID, 1)

	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_SurfacesDatabaseErrors(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM `tasks`").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByID(context.Background(), "6f1c7c4e-2f4a-4a8e-9d1b-3c2f6a1e9b10", 1)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_LocksRowAndWritesOnlyProvidedColumns(t *testing.T) {
	repo, mock := newMockRepository(t)
	taskID := "6f1c7c4e-2f4a-4a8e-9d1b-3c2f6a1e9b10"
	columns := []string{"id", "title", "description", "status", "owner_id", "parent_id"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `tasks` WHERE (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(taskID, "Task", "Details", "created", 1, models.RootTaskID))
	mock.ExpectExec("UPDATE `tasks` SET `title`=\\?,`updated_at`=\\? WHERE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT (.+) FROM `tasks`").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(taskID, "Renamed", "Details", "created", 1, models.RootTaskID))

	title := "Renamed"
	updated, err := repo.Update(context.Background(), &models.Task{ID: taskID, OwnerID: 1}, TaskFields{Title: &title})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
