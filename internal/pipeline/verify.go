package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/resilience"
	"github.com/sells-group/roofclaim/internal/store"
)

// errNotVisible means a read after a write did not see the write yet.
var errNotVisible = eris.New("write not visible")

// upsertVerified writes u and reads the task back until check accepts it.
// The written task is returned; verification failure is a
// *store.PersistenceError.
func (p *Pipeline) upsertVerified(ctx context.Context, userID, taskID string, u model.TaskUpdate, check func(*model.Task) bool) (*model.Task, error) {
	written, err := p.store.UpsertTask(ctx, userID, taskID, u)
	if err != nil {
		return nil, err
	}

	cfg := p.opts.Verify
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = resilience.RetryLogger("pipeline", "verify",
		zap.String("user_id", userID), zap.String("task_id", taskID))

	err = resilience.Do(ctx, cfg, func(ctx context.Context) error {
		got, err := p.store.GetTask(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if got == nil || !check(got) {
			return errNotVisible
		}
		return nil
	})
	if err != nil {
		var pe *store.PersistenceError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &store.PersistenceError{Op: "verify", UserID: userID, TaskID: taskID, Err: err}
	}
	return written, nil
}

// sameJSON compares two values by their JSON encoding.
func sameJSON(a, b any) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}
