package report

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/roofclaim/internal/model"
)

// Sheet names in the exported workbook.
const (
	SheetSummary    = "Summary"
	SheetComparison = "Comparison"
)

var comparisonHeader = []string{"Structure", "Checkpoint", "Status", "Roof Report", "Insurance Report", "Notes", "Warning"}

// XLSX writes a workbook with a Summary sheet (overall and per-structure
// counts) and a Comparison sheet with one row per checkpoint.
func XLSX(res model.ComparisonResult, meta Meta) ([]byte, error) {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add summary sheet")
	}
	if meta.TaskName != "" {
		addRow(summary, "Task", meta.TaskName)
	}
	if meta.ClaimID != "" {
		addRow(summary, "Claim ID", meta.ClaimID)
	}
	addRow(summary, "Scope", "Total", "Pass", "Failed", "Missing")
	addSummaryRow(summary, "All structures", res.Summary)

	structures := res.StructureResults()
	for _, sc := range structures {
		addSummaryRow(summary, fmt.Sprintf("Structure %d", sc.StructureNumber), sc.Summary)
	}

	detail, err := f.AddSheet(SheetComparison)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add comparison sheet")
	}
	addRow(detail, comparisonHeader...)
	for _, sc := range structures {
		for _, cp := range sc.Comparisons {
			warning := ""
			if cp.Warning != nil {
				warning = *cp.Warning
			}
			row := detail.AddRow()
			row.AddCell().SetInt(sc.StructureNumber)
			for _, v := range []string{
				cp.Checkpoint,
				StatusLabel(cp.Status),
				valueOrNA(cp.RoofReportValue),
				valueOrNA(cp.InsuranceReportValue),
				cp.Notes,
				warning,
			} {
				row.AddCell().SetString(v)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx: write workbook")
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addSummaryRow(sheet *xlsx.Sheet, label string, s model.Summary) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	for _, n := range []int{s.Total, s.Pass, s.Failed, s.Missing} {
		row.AddCell().SetInt(n)
	}
}
