package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/roofclaim/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// sqliteTime keeps timestamps lexically sortable.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// One writer keeps read-modify-write upserts serialized.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	user_id    TEXT NOT NULL,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'created',
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_updated ON tasks(user_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	t, err := s.getTask(ctx, s.db, userID, taskID)
	if err != nil {
		return nil, persistErr("get", userID, taskID, err)
	}
	return t, nil
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getTask(ctx context.Context, q sqliteQuerier, userID, taskID string) (*model.Task, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM tasks WHERE user_id = ? AND id = ?`,
		userID, taskID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select task")
	}
	return decodeTask([]byte(data))
}

func (s *SQLiteStore) UpsertTask(ctx context.Context, userID, taskID string, u model.TaskUpdate) (*model.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "sqlite: begin tx"))
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := s.getTask(ctx, tx, userID, taskID)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, err)
	}

	t := mergeTask(existing, userID, taskID, u, s.now().UTC())
	data, err := json.Marshal(t)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "sqlite: marshal task"))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (user_id, id, name, status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		userID, taskID, t.Name, string(t.Status), string(data),
		t.CreatedAt.Format(sqliteTime), t.UpdatedAt.Format(sqliteTime),
	)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "sqlite: upsert task"))
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "sqlite: commit"))
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT data FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list", userID, "", eris.Wrap(err, "sqlite: list tasks"))
	}
	defer rows.Close() //nolint:errcheck

	tasks := []model.Task{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, persistErr("list", userID, "", eris.Wrap(err, "sqlite: scan task"))
		}
		t, err := decodeTask([]byte(data))
		if err != nil {
			return nil, persistErr("list", userID, "", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, persistErr("list", userID, "", rows.Err())
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, taskID)
	if err != nil {
		return persistErr("delete", userID, taskID, eris.Wrap(err, "sqlite: delete task"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete", userID, taskID, eris.Wrap(err, "sqlite: rows affected"))
	}
	if n == 0 {
		return persistErr("delete", userID, taskID, ErrTaskNotFound)
	}
	return nil
}
