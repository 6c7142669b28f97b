package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofclaim/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := &PostgresStore{pool: mock, now: func() time.Time { return fixed }}
	return s, mock
}

func taskJSON(t *testing.T, task model.Task) []byte {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return b
}

func TestPostgresStore_GetTask_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM tasks WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u1", "missing").
		WillReturnError(pgx.ErrNoRows)

	task, err := s.GetTask(context.Background(), "u1", "missing")
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTask_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM tasks`).
		WithArgs("u1", "t1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow(taskJSON(t, model.Task{ID: "t1", UserID: "u1", Name: "Smith", Status: model.TaskStatusReview})))

	task, err := s.GetTask(context.Background(), "u1", "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Smith", task.Name)
	assert.Equal(t, model.TaskStatusReview, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTask_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM tasks`).
		WithArgs("u1", "t1").
		WillReturnError(errors.New("connection refused"))

	_, err := s.GetTask(context.Background(), "u1", "t1")
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "get", pe.Op)
	assert.Equal(t, "t1", pe.TaskID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTask_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	name := "Smith residence"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM tasks WHERE user_id = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("u1", "t1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO tasks .* ON CONFLICT \(user_id, id\) DO UPDATE`).
		WithArgs("u1", "t1", name, "created", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	task, err := s.UpsertTask(context.Background(), "u1", "t1", model.TaskUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, task.Name)
	assert.Equal(t, model.TaskStatusCreated, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTask_Merge(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	existing := model.Task{ID: "t1", UserID: "u1", Name: "Smith", Status: model.TaskStatusReview, CreatedAt: created,
		Comparison: &model.ComparisonResult{Success: true}}

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("u1", "t1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(taskJSON(t, existing)))
	mock.ExpectExec(`INSERT INTO tasks`).
		WithArgs("u1", "t1", "Smith", "review", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	task, err := s.UpsertTask(context.Background(), "u1", "t1", model.TaskUpdate{ClearComparison: true})
	require.NoError(t, err)
	assert.Nil(t, task.Comparison)
	assert.True(t, created.Equal(task.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTask_ExecErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("u1", "t1").WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := s.UpsertTask(context.Background(), "u1", "t1", model.TaskUpdate{})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "upsert", pe.Op)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTasks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM tasks WHERE user_id = \$1 AND status = \$2 ORDER BY updated_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("u1", "review", 100, 0).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow(taskJSON(t, model.Task{ID: "b"})).
			AddRow(taskJSON(t, model.Task{ID: "a"})))

	tasks, err := s.ListTasks(context.Background(), "u1", TaskFilter{Status: model.TaskStatusReview})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteTask(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM tasks WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u1", "t1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM tasks`).
		WithArgs("u1", "t2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteTask(context.Background(), "u1", "t1"))
	err := s.DeleteTask(context.Background(), "u1", "t2")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tasks`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
