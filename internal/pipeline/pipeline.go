// Package pipeline runs the review task lifecycle: upload the two PDFs,
// extract them, let a person correct the data, then generate and export the
// comparison. Every write that matters is verified by reading it back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/config"
	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/ocr"
	"github.com/sells-group/roofclaim/internal/oracle"
	"github.com/sells-group/roofclaim/internal/resilience"
	"github.com/sells-group/roofclaim/internal/resolve"
	"github.com/sells-group/roofclaim/internal/store"
)

// FileStore holds the uploaded documents.
type FileStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (model.FileRef, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, ids []string) error
	Path(id string) string
}

// ErrNotFound is returned when a task does not exist for the user.
var ErrNotFound = eris.New("pipeline: task not found")

// InputError reports a request the pipeline cannot act on as given.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return "pipeline: " + e.Msg }

func inputErr(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// Options tunes a Pipeline.
type Options struct {
	// Table overrides the built-in line item keyword table.
	Table *resolve.Table
	// Concurrency caps parallel structure evaluations.
	Concurrency int
	// LegacySingle stores single-structure analyses in the flat shape.
	LegacySingle bool
	// Verify controls read-after-write checks.
	Verify resilience.RetryConfig
}

// Pipeline orchestrates one user's review tasks.
type Pipeline struct {
	store     store.Store
	files     FileStore
	extractor ocr.Extractor
	oracle    oracle.Oracle
	opts      Options
	now       func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(st store.Store, files FileStore, extractor ocr.Extractor, orc oracle.Oracle, opts Options) *Pipeline {
	if opts.Verify.MaxAttempts == 0 {
		opts.Verify = resilience.VerifyRetryConfig()
	}
	if opts.Table == nil {
		opts.Table = resolve.DefaultTable()
	}
	return &Pipeline{
		store:     st,
		files:     files,
		extractor: extractor,
		oracle:    orc,
		opts:      opts,
		now:       time.Now,
	}
}

// OptionsFromConfig loads the keyword table and verification settings.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		Concurrency:  cfg.Compare.Concurrency,
		LegacySingle: cfg.Compare.LegacySingle,
		Verify:       resilience.FromVerifyConfig(cfg.Persistence),
	}
	if cfg.Compare.KeywordTable != "" {
		t, err := resolve.LoadTable(cfg.Compare.KeywordTable)
		if err != nil {
			return Options{}, eris.Wrap(err, "pipeline: load keyword table")
		}
		opts.Table = t
	}
	return opts, nil
}

func taskLogger(userID, taskID string) *zap.Logger {
	return zap.L().With(zap.String("user_id", userID), zap.String("task_id", taskID))
}

// CreateTask starts a new task for the user.
func (p *Pipeline) CreateTask(ctx context.Context, userID, name string) (*model.Task, error) {
	if userID == "" {
		return nil, inputErr("user id required")
	}
	if name == "" {
		name = "Untitled review"
	}
	id := uuid.New().String()
	status := model.TaskStatusCreated
	task, err := p.store.UpsertTask(ctx, userID, id, model.TaskUpdate{Name: &name, Status: &status})
	if err != nil {
		return nil, err
	}
	taskLogger(userID, id).Info("pipeline: task created", zap.String("name", name))
	return task, nil
}

// GetTask returns the task or ErrNotFound.
func (p *Pipeline) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if userID == "" {
		return nil, inputErr("user id required")
	}
	task, err := p.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, eris.Wrapf(ErrNotFound, "task %s", taskID)
	}
	return task, nil
}

// ListTasks returns the user's tasks, most recently updated first.
func (p *Pipeline) ListTasks(ctx context.Context, userID string, filter store.TaskFilter) ([]model.Task, error) {
	if userID == "" {
		return nil, inputErr("user id required")
	}
	return p.store.ListTasks(ctx, userID, filter)
}

// DeleteTask removes the task and its uploaded files.
func (p *Pipeline) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := p.store.DeleteTask(ctx, userID, taskID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return eris.Wrapf(ErrNotFound, "task %s", taskID)
		}
		return err
	}
	if err := p.files.Delete(ctx, fileIDs(task.Files)); err != nil {
		taskLogger(userID, taskID).Warn("pipeline: delete task files", zap.Error(err))
	}
	taskLogger(userID, taskID).Info("pipeline: task deleted")
	return nil
}

func fileIDs(files []model.FileRef) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}
