package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/compare"
	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/report"
	"github.com/sells-group/roofclaim/internal/schema"
)

func (p *Pipeline) compareOptions() compare.Options {
	return compare.Options{
		Table:       p.opts.Table,
		Concurrency: p.opts.Concurrency,
		Legacy:      p.opts.LegacySingle,
	}
}

// GenerateAnalysis compares the task's two reports and stores the result.
// It always recomputes; a stored analysis is never reused.
func (p *Pipeline) GenerateAnalysis(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Roof == nil || task.Insurance == nil {
		return nil, inputErr("both reports must be extracted before analysis")
	}

	res, err := compare.Compare(ctx, task.Roof, task.Insurance, p.compareOptions())
	if err != nil {
		return nil, err
	}
	res.GeneratedAt = p.now().UTC()

	status := model.TaskStatusAnalyzed
	empty := ""
	u := model.TaskUpdate{Comparison: res, Status: &status, Error: &empty}
	saved, err := p.upsertVerified(ctx, userID, taskID, u, func(t *model.Task) bool {
		return t.Comparison != nil && t.Comparison.GeneratedAt.Equal(res.GeneratedAt)
	})
	if err != nil {
		return nil, err
	}

	taskLogger(userID, taskID).Info("pipeline: analysis generated",
		zap.Int("structures", res.StructureCount),
		zap.Int("pass", res.Summary.Pass),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("missing", res.Summary.Missing),
	)
	return saved, nil
}

// Report renders the stored analysis.
func (p *Pipeline) Report(ctx context.Context, userID, taskID string, format report.Format) ([]byte, error) {
	task, err := p.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Comparison == nil {
		return nil, inputErr("no analysis yet; generate one first")
	}

	meta := report.Meta{TaskName: task.Name, GeneratedAt: task.Comparison.GeneratedAt}
	if task.Insurance != nil {
		meta.ClaimID = task.Insurance.ClaimID
	}
	return report.Render(format, *task.Comparison, meta)
}

// CompareRaw validates two raw reports and compares them without a task.
func (p *Pipeline) CompareRaw(ctx context.Context, roofRaw, insuranceRaw json.RawMessage) (*model.ComparisonResult, error) {
	roof, err := schema.ParseRoof(roofRaw)
	if err != nil {
		return nil, err
	}
	ins, err := schema.ParseInsurance(insuranceRaw)
	if err != nil {
		return nil, err
	}
	res, err := compare.Compare(ctx, roof, ins, p.compareOptions())
	if err != nil {
		return nil, err
	}
	res.GeneratedAt = p.now().UTC()
	return res, nil
}
