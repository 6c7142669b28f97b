package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/roofclaim/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	user_id    TEXT NOT NULL,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'created',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_updated ON tasks(user_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	t, err := scanTaskRow(s.pool.QueryRow(ctx,
		`SELECT data FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, taskID,
	))
	if err != nil {
		return nil, persistErr("get", userID, taskID, err)
	}
	return t, nil
}

func scanTaskRow(row pgx.Row) (*model.Task, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select task")
	}
	return decodeTask(data)
}

func (s *PostgresStore) UpsertTask(ctx context.Context, userID, taskID string, u model.TaskUpdate) (*model.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "postgres: begin tx"))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	existing, err := scanTaskRow(tx.QueryRow(ctx,
		`SELECT data FROM tasks WHERE user_id = $1 AND id = $2 FOR UPDATE`,
		userID, taskID,
	))
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, err)
	}

	t := mergeTask(existing, userID, taskID, u, s.now().UTC())
	data, err := json.Marshal(t)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "postgres: marshal task"))
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO tasks (user_id, id, name, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		userID, taskID, t.Name, string(t.Status), data, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "postgres: upsert task"))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("upsert", userID, taskID, eris.Wrap(err, "postgres: commit"))
	}
	return &t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT data FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if filter.Status != "" {
		query += ` AND status = $2 ORDER BY updated_at DESC LIMIT $3 OFFSET $4`
		args = append(args, string(filter.Status))
	} else {
		query += ` ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	}
	args = append(args, filter.limit(), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list", userID, "", eris.Wrap(err, "postgres: list tasks"))
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, persistErr("list", userID, "", eris.Wrap(err, "postgres: scan task"))
		}
		t, err := decodeTask(data)
		if err != nil {
			return nil, persistErr("list", userID, "", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, persistErr("list", userID, "", rows.Err())
}

func (s *PostgresStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND id = $2`, userID, taskID)
	if err != nil {
		return persistErr("delete", userID, taskID, eris.Wrap(err, "postgres: delete task"))
	}
	if tag.RowsAffected() == 0 {
		return persistErr("delete", userID, taskID, ErrTaskNotFound)
	}
	return nil
}
