package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/oracle"
	"github.com/sells-group/roofclaim/internal/schema"
)

// Extract reads the task's document of the given kind and stores the
// normalized report. Any previous analysis is cleared. structureCount is a
// hint for the oracle; 0 uses the roof report's count when one exists.
func (p *Pipeline) Extract(ctx context.Context, userID, taskID string, kind model.DocumentKind, structureCount int) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.FileByKind(kind) == nil {
		return nil, inputErr("no %s document uploaded", kind)
	}

	if err := p.setStatus(ctx, userID, taskID, model.TaskStatusExtracting, ""); err != nil {
		return nil, err
	}
	if err := p.extractOne(ctx, task, kind, structureCount); err != nil {
		p.markFailed(ctx, userID, taskID, err)
		return nil, err
	}
	return p.finishExtraction(ctx, userID, taskID)
}

// ExtractAll extracts every uploaded document concurrently. The first
// failure is returned once both have finished.
func (p *Pipeline) ExtractAll(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	var kinds []model.DocumentKind
	for _, k := range []model.DocumentKind{model.DocumentRoof, model.DocumentInsurance} {
		if task.FileByKind(k) != nil {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, inputErr("no documents uploaded")
	}

	if err := p.setStatus(ctx, userID, taskID, model.TaskStatusExtracting, ""); err != nil {
		return nil, err
	}

	var g errgroup.Group
	for _, k := range kinds {
		g.Go(func() error {
			return p.extractOne(ctx, task, k, 0)
		})
	}
	if err := g.Wait(); err != nil {
		p.markFailed(ctx, userID, taskID, err)
		return nil, err
	}
	return p.finishExtraction(ctx, userID, taskID)
}

// extractOne runs OCR, the oracle and schema normalization for one document
// and stores the result.
func (p *Pipeline) extractOne(ctx context.Context, task *model.Task, kind model.DocumentKind, structureCount int) error {
	log := taskLogger(task.UserID, task.ID).With(zap.String("kind", string(kind)))
	start := time.Now()

	file := task.FileByKind(kind)
	path := p.files.Path(file.ID)
	if path == "" {
		return &oracle.ExtractionError{Kind: kind, Stage: oracle.StagePages, Err: ErrNotFound}
	}

	pages, err := p.extractor.ExtractPages(ctx, path)
	if err != nil {
		return &oracle.ExtractionError{Kind: kind, Stage: oracle.StagePages, Err: err}
	}
	log.Debug("pipeline: pages extracted", zap.Int("pages", len(pages)))

	if structureCount <= 0 && kind == model.DocumentInsurance && task.Roof != nil {
		structureCount = task.Roof.StructureCount
	}

	raw, err := p.oracle.Extract(ctx, kind, pages, structureCount)
	if err != nil {
		return err
	}

	var (
		u     model.TaskUpdate
		check func(*model.Task) bool
		count int
	)
	switch kind {
	case model.DocumentRoof:
		roof, err := schema.ParseRoof(raw)
		if err != nil {
			return &oracle.ExtractionError{Kind: kind, Stage: oracle.StageSchema, Err: err}
		}
		u.Roof, count = roof, roof.StructureCount
		check = func(t *model.Task) bool { return sameJSON(t.Roof, roof) }
	default:
		ins, err := schema.ParseInsurance(raw)
		if err != nil {
			return &oracle.ExtractionError{Kind: kind, Stage: oracle.StageSchema, Err: err}
		}
		u.Insurance, count = ins, ins.StructureCount
		check = func(t *model.Task) bool { return sameJSON(t.Insurance, ins) }
	}
	u.ClearComparison = true

	if _, err := p.upsertVerified(ctx, task.UserID, task.ID, u, check); err != nil {
		return err
	}

	log.Info("pipeline: document extracted",
		zap.Int("structures", count),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) finishExtraction(ctx context.Context, userID, taskID string) (*model.Task, error) {
	status := model.TaskStatusReview
	empty := ""
	return p.store.UpsertTask(ctx, userID, taskID, model.TaskUpdate{Status: &status, Error: &empty})
}

func (p *Pipeline) setStatus(ctx context.Context, userID, taskID string, status model.TaskStatus, msg string) error {
	_, err := p.store.UpsertTask(ctx, userID, taskID, model.TaskUpdate{Status: &status, Error: &msg})
	return err
}

// markFailed records the failure on the task. It runs even when ctx was
// cancelled so the task does not stay in the extracting state.
func (p *Pipeline) markFailed(ctx context.Context, userID, taskID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	log := taskLogger(userID, taskID)
	log.Error("pipeline: extraction failed", zap.Error(cause))
	if err := p.setStatus(ctx, userID, taskID, model.TaskStatusFailed, cause.Error()); err != nil {
		log.Warn("pipeline: record failure", zap.Error(err))
	}
}
