// Package store persists review tasks. Each task is kept as one JSON
// document keyed by (user_id, id) with a few columns lifted out for listing.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofclaim/internal/model"
)

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	Status model.TaskStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence contract for review tasks. GetTask returns
// (nil, nil) when the task does not exist. UpsertTask creates the task on
// first write and merges the update atomically.
type Store interface {
	GetTask(ctx context.Context, userID, taskID string) (*model.Task, error)
	UpsertTask(ctx context.Context, userID, taskID string, update model.TaskUpdate) (*model.Task, error)
	ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// PersistenceError reports a storage failure with the task it concerns.
type PersistenceError struct {
	Op     string
	UserID string
	TaskID string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("store: %s for user %s: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("store: %s task %s for user %s: %v", e.Op, e.TaskID, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op, userID, taskID string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, UserID: userID, TaskID: taskID, Err: err}
}

// ErrTaskNotFound is wrapped by DeleteTask when nothing was deleted.
var ErrTaskNotFound = eris.New("task not found")

const defaultListLimit = 100

func (f TaskFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return defaultListLimit
	}
	return f.Limit
}

// mergeTask applies u to existing, or to a fresh task when existing is nil.
func mergeTask(existing *model.Task, userID, taskID string, u model.TaskUpdate, now time.Time) model.Task {
	var t model.Task
	if existing != nil {
		t = *existing
	} else {
		t = model.Task{
			ID:        taskID,
			UserID:    userID,
			Status:    model.TaskStatusCreated,
			Files:     []model.FileRef{},
			CreatedAt: now,
		}
	}
	u.Apply(&t)
	t.UpdatedAt = now
	return t
}

func decodeTask(data []byte) (*model.Task, error) {
	var t model.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "decode task")
	}
	return &t, nil
}
