package report

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/roofclaim/internal/model"
)

func strp(s string) *string { return &s }

func checkpoints() []model.ComparisonCheckpoint {
	return []model.ComparisonCheckpoint{
		{
			Checkpoint:           "Confirm Total Squares",
			Status:               model.StatusPass,
			RoofReportValue:      strp("30.0 SQ"),
			InsuranceReportValue: strp("32.0 SQ"),
			Notes:                "Insurance 32.0 SQ is at least the roof report 30.0 SQ.",
		},
		{
			Checkpoint:           "Drip Edge",
			Status:               model.StatusFailed,
			RoofReportValue:      strp("120.0 LF"),
			InsuranceReportValue: strp("100.0 LF"),
			Notes:                "Insurance 100.0 LF is below the roof report 120.0 LF by 20.0 LF.",
		},
		{
			Checkpoint: "Chimney flashing",
			Status:     model.StatusMissing,
			Notes:      "Presence check: no chimney flashing line item found in the insurance estimate.",
			Warning:    strp("No chimney flashing found in the insurance estimate; confirm whether it is required."),
		},
	}
}

func singleResult() model.ComparisonResult {
	cps := checkpoints()
	return model.ComparisonResult{
		Success:        true,
		StructureCount: 1,
		Summary:        model.Summary{Pass: 1, Failed: 1, Missing: 1, Total: 3},
		Comparisons:    cps,
	}
}

func multiResult() model.ComparisonResult {
	s := model.Summary{Pass: 1, Failed: 1, Missing: 1, Total: 3}
	return model.ComparisonResult{
		Success:        true,
		StructureCount: 2,
		Summary:        s.Add(s),
		Structures: []model.StructureComparison{
			{StructureNumber: 1, Summary: s, Comparisons: checkpoints()},
			{StructureNumber: 2, Summary: s, Comparisons: checkpoints()},
		},
	}
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Pass", StatusLabel(model.StatusPass))
	assert.Equal(t, "Failed", StatusLabel(model.StatusFailed))
	assert.Equal(t, "Missing", StatusLabel(model.StatusMissing))
}

func TestRender_Concurrent(t *testing.T) {
	t.Parallel()

	res := multiResult()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				assert.Equal(t, "Missing", StatusLabel(model.StatusMissing))
				assert.Contains(t, Markdown(res, Meta{}), "- **Status:** Failed")
				_, err := XLSX(res, Meta{})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestMarkdown_Headers(t *testing.T) {
	t.Parallel()

	md := Markdown(singleResult(), Meta{})
	assert.True(t, strings.HasPrefix(md, "# Roof vs Insurance Report Analysis\n"))
	assert.Contains(t, md, "\n## Summary\n")
	assert.Contains(t, md, "\n## Detailed Comparison\n")
	assert.Less(t, strings.Index(md, "## Summary"), strings.Index(md, "## Detailed Comparison"))

	for _, cp := range checkpoints() {
		assert.Contains(t, md, "### "+cp.Checkpoint+"\n")
	}
	assert.Contains(t, md, "- **Status:** Failed\n")
	assert.Contains(t, md, "- **Roof Report:** 120.0 LF\n")
	assert.Contains(t, md, "- **Insurance Report:** N/A\n")
	assert.Contains(t, md, "- **Notes:** Insurance 32.0 SQ is at least the roof report 30.0 SQ.\n")
	assert.Contains(t, md, "- **Warning:** No chimney flashing found")
	assert.Contains(t, md, "- Total checkpoints: 3\n")
	assert.NotContains(t, md, "**Structure 1**")
}

func TestMarkdown_Meta(t *testing.T) {
	t.Parallel()

	md := Markdown(singleResult(), Meta{
		TaskName:    "Smith residence",
		ClaimID:     "CLM-2291",
		GeneratedAt: time.Date(2024, 5, 2, 15, 4, 5, 0, time.UTC),
	})
	assert.Contains(t, md, "Task: Smith residence\n")
	assert.Contains(t, md, "Claim ID: CLM-2291\n")
	assert.Contains(t, md, "Generated: 2024-05-02T15:04:05Z\n")
}

func TestMarkdown_MultiStructure(t *testing.T) {
	t.Parallel()

	md := Markdown(multiResult(), Meta{})
	assert.Contains(t, md, "**Structure 1** (1 pass, 1 failed, 1 missing)")
	assert.Contains(t, md, "**Structure 2**")
	assert.Contains(t, md, "- Structures: 2\n")
	assert.Contains(t, md, "- Total checkpoints: 6\n")
	assert.Equal(t, 2, strings.Count(md, "### Drip Edge\n"))
}

func TestMarkdown_Empty(t *testing.T) {
	t.Parallel()

	md := Markdown(model.ComparisonResult{}, Meta{})
	assert.Contains(t, md, "No comparison results.")
}

func TestHTML(t *testing.T) {
	t.Parallel()

	res := singleResult()
	res.Comparisons[0].Notes = "<script>alert(1)</script>"

	out, err := HTML(res, Meta{TaskName: "Smith residence"})
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, "<title>Roof vs Insurance Report Analysis - Smith residence</title>")
	assert.Contains(t, page, "<h1")
	assert.Contains(t, page, "Roof vs Insurance Report Analysis</h1>")
	assert.Contains(t, page, `class="card failed"`)
	assert.Contains(t, page, "Detailed Comparison")
	assert.NotContains(t, page, "<script>alert(1)</script>")
}

func TestXLSX(t *testing.T) {
	t.Parallel()

	out, err := XLSX(multiResult(), Meta{ClaimID: "CLM-2291"})
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(out)
	require.NoError(t, err)

	summary, ok := f.Sheet[SheetSummary]
	require.True(t, ok)
	require.Len(t, summary.Rows, 5)
	assert.Equal(t, "CLM-2291", summary.Rows[0].Cells[1].String())
	assert.Equal(t, "All structures", summary.Rows[2].Cells[0].String())
	assert.Equal(t, "6", summary.Rows[2].Cells[1].String())

	detail, ok := f.Sheet[SheetComparison]
	require.True(t, ok)
	require.Len(t, detail.Rows, 7)
	assert.Equal(t, "Checkpoint", detail.Rows[0].Cells[1].String())
	assert.Equal(t, "2", detail.Rows[4].Cells[0].String())
	assert.Equal(t, "Failed", detail.Rows[2].Cells[2].String())
	assert.Equal(t, "N/A", detail.Rows[3].Cells[4].String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{
		"": FormatMarkdown, "markdown": FormatMarkdown, "HTML": FormatHTML,
		"xlsx": FormatXLSX, "excel": FormatXLSX, "json": FormatJSON,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "report.xlsx", FormatXLSX.Filename("report"))
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}

func TestRender_JSON(t *testing.T) {
	t.Parallel()

	out, err := Render(FormatJSON, multiResult(), Meta{})
	require.NoError(t, err)

	var back model.ComparisonResult
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, multiResult(), back)

	_, err = Render(Format("pdf"), multiResult(), Meta{})
	assert.Error(t, err)
}
