package compare

import "github.com/sells-group/roofclaim/internal/model"

// Summarize counts checkpoint statuses. Total is always len(checkpoints).
func Summarize(checkpoints []model.ComparisonCheckpoint) model.Summary {
	s := model.Summary{Total: len(checkpoints)}
	for _, cp := range checkpoints {
		switch cp.Status {
		case model.StatusPass:
			s.Pass++
		case model.StatusFailed:
			s.Failed++
		case model.StatusMissing:
			s.Missing++
		}
	}
	return s
}

// Combine sums the summaries of every structure.
func Combine(structures []model.StructureComparison) model.Summary {
	var total model.Summary
	for _, sc := range structures {
		total = total.Add(sc.Summary)
	}
	return total
}
