package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/board-api/domain"
)

const (
	testBoardID = "6f1c2a7e-2c43-4c6b-9a50-0b7d2b8f6a11"
	testTaskID  = "0d4b8f5e-77f0-4a8e-8d0c-3c8a1f0e9b22"
)

var (
	boardCols = []string{"id", "name", "description", "created_at", "updated_at"}
	taskCols  = []string{"id", "board_id", "name", "description", "icon", "status", "created_at"}
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "postgres")), mock
}

func taskRow(rows *sqlmock.Rows, id, name string, icon domain.Icon, status domain.Status, at time.Time) *sqlmock.Rows {
	return rows.AddRow(id, testBoardID, name, "", string(icon), string(status), at)
}

func TestPostgresCreateBoardSeedsTasksInTransaction(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO boards`).
		WithArgs(sqlmock.AnyArg(), domain.DefaultBoardName, domain.DefaultBoardDescription, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(boardCols).AddRow(testBoardID, domain.DefaultBoardName, domain.DefaultBoardDescription, now, now))
	for i, seed := range domain.SeedTasks(testBoardID) {
		mock.ExpectQuery(`INSERT INTO tasks`).
			WithArgs(sqlmock.AnyArg(), testBoardID, seed.Name, "", string(seed.Icon), string(seed.Status), sqlmock.AnyArg()).
			WillReturnRows(taskRow(sqlmock.NewRows(taskCols), "task-"+string(rune('a'+i)), seed.Name, seed.Icon, seed.Status, now))
	}
	mock.ExpectCommit()

	board, err := p.CreateBoard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testBoardID, board.ID)
	require.Len(t, board.Tasks, 3)
	assert.Equal(t, domain.StatusInProgress, board.Tasks[0].Status)
	assert.Equal(t, domain.IconRocket, board.Tasks[1].Icon)
	assert.Equal(t, domain.StatusWontDo, board.Tasks[2].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateBoardRollsBackOnSeedFailure(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO boards`).
		WillReturnRows(sqlmock.NewRows(boardCols).AddRow(testBoardID, domain.DefaultBoardName, domain.DefaultBoardDescription, now, now))
	mock.ExpectQuery(`INSERT INTO tasks`).WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := p.CreateBoard(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetBoardIncludesTasks(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM boards WHERE id = \$1`).
		WithArgs(testBoardID).
		WillReturnRows(sqlmock.NewRows(boardCols).AddRow(testBoardID, "Board", "Desc", now, now))
	mock.ExpectQuery(`FROM tasks WHERE board_id = \$1 ORDER BY created_at$`).
		WithArgs(testBoardID).
		WillReturnRows(taskRow(sqlmock.NewRows(taskCols), testTaskID, "Write", domain.IconBooks, domain.StatusToDo, now))

	board, err := p.GetBoard(context.Background(), testBoardID)
	require.NoError(t, err)
	assert.Equal(t, "Board", board.Name)
	require.Len(t, board.Tasks, 1)
	assert.Equal(t, testBoardID, board.Tasks[0].BoardID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetBoardNotFound(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM boards WHERE id = \$1`).
		WithArgs(testBoardID).
		WillReturnRows(sqlmock.NewRows(boardCols))

	_, err := p.GetBoard(context.Background(), testBoardID)
	require.ErrorIs(t, err, domain.ErrBoardNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMalformedIDsSkipTheDatabase(t *testing.T) {
	p, mock := newMockPostgres(t)
	ctx := context.Background()

	_, err := p.GetBoard(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrBoardNotFound)
	assert.ErrorIs(t, p.DeleteBoard(ctx, "nope"), domain.ErrBoardNotFound)
	_, err = p.GetTask(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	tasks, err := p.ListTasks(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateBoardMergesPatch(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()
	name := "X"

	mock.ExpectQuery(`UPDATE boards`).
		WithArgs(testBoardID, "X", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(boardCols).AddRow(testBoardID, "X", "Desc", now, now.Add(time.Second)))
	mock.ExpectQuery(`FROM tasks WHERE board_id = \$1`).
		WithArgs(testBoardID).
		WillReturnRows(sqlmock.NewRows(taskCols))

	board, err := p.UpdateBoard(context.Background(), testBoardID, domain.BoardPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "X", board.Name)
	assert.Equal(t, "Desc", board.Description)
	assert.NotNil(t, board.Tasks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateBoardMissing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`UPDATE boards`).WillReturnRows(sqlmock.NewRows(boardCols))

	_, err := p.UpdateBoard(context.Background(), testBoardID, domain.BoardPatch{})
	require.ErrorIs(t, err, domain.ErrBoardNotFound)
}

func TestPostgresDeleteBoard(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM boards WHERE id = \$1`).WithArgs(testBoardID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM boards WHERE id = \$1`).WithArgs(testBoardID).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, p.DeleteBoard(context.Background(), testBoardID))
	require.ErrorIs(t, p.DeleteBoard(context.Background(), testBoardID), domain.ErrBoardNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListTasksFilters(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM tasks ORDER BY created_at DESC`).
		WillReturnRows(taskRow(sqlmock.NewRows(taskCols), testTaskID, "all", domain.IconClock, domain.StatusToDo, now))
	mock.ExpectQuery(`FROM tasks WHERE board_id = \$1 ORDER BY created_at DESC`).
		WithArgs(testBoardID).
		WillReturnRows(sqlmock.NewRows(taskCols))

	all, err := p.ListTasks(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	scoped, err := p.ListTasks(context.Background(), testBoardID)
	require.NoError(t, err)
	assert.NotNil(t, scoped)
	assert.Empty(t, scoped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateTaskForeignKeyViolation(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO tasks`).WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	_, err := p.CreateTask(context.Background(), domain.NewTask{
		Name: "Buy milk", Icon: domain.IconBooks, Status: domain.StatusToDo, BoardID: testBoardID,
	})
	require.ErrorIs(t, err, domain.ErrBoardNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateTaskPassesNullsForAbsentFields(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()
	status := domain.StatusCompleted

	mock.ExpectQuery(`UPDATE tasks`).
		WithArgs(testTaskID, nil, nil, nil, "Completed").
		WillReturnRows(taskRow(sqlmock.NewRows(taskCols), testTaskID, "Write", domain.IconBooks, domain.StatusCompleted, now))

	task, err := p.UpdateTask(context.Background(), testTaskID, domain.TaskPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, task.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteTaskReturnsRow(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`DELETE FROM tasks WHERE id = \$1 RETURNING`).
		WithArgs(testTaskID).
		WillReturnRows(taskRow(sqlmock.NewRows(taskCols), testTaskID, "Write", domain.IconBooks, domain.StatusToDo, now))
	mock.ExpectQuery(`DELETE FROM tasks WHERE id = \$1 RETURNING`).
		WithArgs(testTaskID).
		WillReturnRows(sqlmock.NewRows(taskCols))

	task, err := p.DeleteTask(context.Background(), testTaskID)
	require.NoError(t, err)
	assert.Equal(t, testBoardID, task.BoardID)

	_, err = p.DeleteTask(context.Background(), testTaskID)
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
