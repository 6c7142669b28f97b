package model

import "time"

// Status is the verdict of one checkpoint.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFailed  Status = "failed"
	StatusMissing Status = "missing"
)

// ComparisonCheckpoint is the outcome of one named comparison rule.
type ComparisonCheckpoint struct {
	Checkpoint           string  `json:"checkpoint"`
	Status               Status  `json:"status"`
	RoofReportValue      *string `json:"roof_report_value"`
	InsuranceReportValue *string `json:"insurance_report_value"`
	Notes                string  `json:"notes"`
	Warning              *string `json:"warning"`
}

// Summary counts checkpoint statuses.
type Summary struct {
	Pass    int `json:"pass"`
	Failed  int `json:"failed"`
	Missing int `json:"missing"`
	Total   int `json:"total"`
}

// Add returns the element-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Pass:    s.Pass + o.Pass,
		Failed:  s.Failed + o.Failed,
		Missing: s.Missing + o.Missing,
		Total:   s.Total + o.Total,
	}
}

// StructureComparison holds every checkpoint for one structure.
type StructureComparison struct {
	StructureNumber int                    `json:"structureNumber"`
	Summary         Summary                `json:"summary"`
	Comparisons     []ComparisonCheckpoint `json:"comparisons"`
}

// ComparisonResult is the persisted outcome of an analysis. Results for a
// single structure may be stored in the legacy flattened form (Comparisons)
// or as a one-entry Structures list; both mean the same thing.
type ComparisonResult struct {
	Success        bool                   `json:"success"`
	StructureCount int                    `json:"structureCount"`
	Summary        Summary                `json:"summary"`
	Comparisons    []ComparisonCheckpoint `json:"comparisons,omitempty"`
	Structures     []StructureComparison  `json:"structures,omitempty"`
	GeneratedAt    time.Time              `json:"generatedAt,omitzero"`
}

// StructureResults returns per-structure results for either shape.
func (r ComparisonResult) StructureResults() []StructureComparison {
	if len(r.Structures) > 0 {
		return r.Structures
	}
	if len(r.Comparisons) == 0 {
		return nil
	}
	return []StructureComparison{{
		StructureNumber: 1,
		Summary:         r.Summary,
		Comparisons:     r.Comparisons,
	}}
}

// Flatten returns the legacy single-structure shape. Results with more than
// one structure are returned unchanged.
func (r ComparisonResult) Flatten() ComparisonResult {
	if len(r.Structures) != 1 {
		return r
	}
	out := r
	out.Comparisons = r.Structures[0].Comparisons
	out.Summary = r.Structures[0].Summary
	out.Structures = nil
	return out
}
