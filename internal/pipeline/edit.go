package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/review"
)

// EditRoof applies review edits to the task's roof report. The edits are
// all applied or none are; a successful edit clears the analysis.
func (p *Pipeline) EditRoof(ctx context.Context, userID, taskID string, edits []review.Edit) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Roof == nil {
		return nil, inputErr("roof report has not been extracted")
	}

	roof, err := review.ApplyRoof(*task.Roof, edits)
	if err != nil {
		return nil, err
	}
	return p.saveEdit(ctx, userID, taskID, "roof", len(edits), model.TaskUpdate{Roof: &roof},
		func(t *model.Task) bool { return sameJSON(t.Roof, roof) })
}

// EditInsurance applies review edits to the task's insurance estimate.
func (p *Pipeline) EditInsurance(ctx context.Context, userID, taskID string, edits []review.Edit) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Insurance == nil {
		return nil, inputErr("insurance estimate has not been extracted")
	}

	ins, err := review.ApplyInsurance(*task.Insurance, edits)
	if err != nil {
		return nil, err
	}
	return p.saveEdit(ctx, userID, taskID, "insurance", len(edits), model.TaskUpdate{Insurance: &ins},
		func(t *model.Task) bool { return sameJSON(t.Insurance, ins) })
}

func (p *Pipeline) saveEdit(ctx context.Context, userID, taskID, kind string, n int, u model.TaskUpdate, check func(*model.Task) bool) (*model.Task, error) {
	status := model.TaskStatusReview
	u.Status = &status
	u.ClearComparison = true

	task, err := p.upsertVerified(ctx, userID, taskID, u, check)
	if err != nil {
		return nil, err
	}
	taskLogger(userID, taskID).Info("pipeline: report edited",
		zap.String("kind", kind),
		zap.Int("edits", n),
	)
	return task, nil
}
