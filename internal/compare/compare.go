package compare

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/resolve"
)

// Options tunes Compare.
type Options struct {
	// Table overrides the built-in keyword table.
	Table *resolve.Table
	// Concurrency caps parallel structure evaluations. Zero means one
	// goroutine per structure.
	Concurrency int
	// Legacy flattens single-structure results into the top-level
	// comparisons list.
	Legacy bool
}

// Compare evaluates every roof structure against the insurance section at
// the same position and aggregates the results. The roof report decides the
// structure count: a structure with no paired section is evaluated against
// an empty placeholder, and surplus sections are ignored.
func Compare(ctx context.Context, roof *model.RoofReportData, ins *model.InsuranceReportData, opts Options) (*model.ComparisonResult, error) {
	if roof == nil || ins == nil {
		return nil, eris.New("compare: both reports are required")
	}
	if len(roof.Structures) == 0 {
		return nil, eris.New("compare: roof report has no structures")
	}

	table := opts.Table
	if table == nil {
		table = resolve.DefaultTable()
	}

	n := len(roof.Structures)
	log := zap.L().With(zap.Int("structures", n), zap.Int("sections", len(ins.RoofSections)))
	if extra := len(ins.RoofSections) - n; extra > 0 {
		log.Warn("compare: ignoring surplus insurance sections", zap.Int("surplus", extra))
	}

	results := make([]model.StructureComparison, n)
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i := range roof.Structures {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := roof.Structures[i]
			sec := ins.Section(i)
			if sec.IsPlaceholder() {
				log.Info("compare: no insurance section for structure",
					zap.Int("structure", s.StructureNumber))
			}
			cps := Evaluate(s, sec, table)
			results[i] = model.StructureComparison{
				StructureNumber: s.StructureNumber,
				Summary:         Summarize(cps),
				Comparisons:     cps,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "compare: evaluate structures")
	}

	result := &model.ComparisonResult{
		Success:        true,
		StructureCount: n,
		Summary:        Combine(results),
		Structures:     results,
	}
	if opts.Legacy && n == 1 {
		flat := result.Flatten()
		result = &flat
	}
	return result, nil
}
