// Package report renders comparison results for people: Markdown, HTML with
// summary cards, an XLSX workbook, or the raw JSON result.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/roofclaim/internal/model"
)

// Meta carries optional context printed above the summary.
type Meta struct {
	TaskName    string
	ClaimID     string
	GeneratedAt time.Time
}

const notAvailable = "N/A"

// StatusLabel renders a status for display ("pass" -> "Pass"). A Caser
// keeps state between calls, so each call gets its own.
func StatusLabel(s model.Status) string {
	return cases.Title(language.English).String(string(s))
}

func valueOrNA(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return notAvailable
	}
	return *v
}

// Markdown renders the result as a Markdown document.
func Markdown(res model.ComparisonResult, meta Meta) string {
	var b strings.Builder

	b.WriteString("# Roof vs Insurance Report Analysis\n\n")
	if meta.TaskName != "" {
		fmt.Fprintf(&b, "Task: %s\n", meta.TaskName)
	}
	if meta.ClaimID != "" {
		fmt.Fprintf(&b, "Claim ID: %s\n", meta.ClaimID)
	}
	if !meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n", meta.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if meta.TaskName != "" || meta.ClaimID != "" || !meta.GeneratedAt.IsZero() {
		b.WriteString("\n")
	}

	structures := res.StructureResults()

	b.WriteString("## Summary\n\n")
	writeSummary(&b, res.Summary)
	if len(structures) > 1 {
		fmt.Fprintf(&b, "- Structures: %d\n", len(structures))
	}
	b.WriteString("\n")

	b.WriteString("## Detailed Comparison\n\n")
	if len(structures) == 0 {
		b.WriteString("No comparison results.\n")
		return b.String()
	}
	for _, sc := range structures {
		if len(structures) > 1 {
			fmt.Fprintf(&b, "**Structure %d** (%d pass, %d failed, %d missing)\n\n",
				sc.StructureNumber, sc.Summary.Pass, sc.Summary.Failed, sc.Summary.Missing)
		}
		for _, cp := range sc.Comparisons {
			writeCheckpoint(&b, cp)
		}
	}
	return b.String()
}

func writeSummary(b *strings.Builder, s model.Summary) {
	fmt.Fprintf(b, "- Total checkpoints: %d\n", s.Total)
	fmt.Fprintf(b, "- Pass: %d\n", s.Pass)
	fmt.Fprintf(b, "- Failed: %d\n", s.Failed)
	fmt.Fprintf(b, "- Missing: %d\n", s.Missing)
}

func writeCheckpoint(b *strings.Builder, cp model.ComparisonCheckpoint) {
	fmt.Fprintf(b, "### %s\n\n", cp.Checkpoint)
	fmt.Fprintf(b, "- **Status:** %s\n", StatusLabel(cp.Status))
	fmt.Fprintf(b, "- **Roof Report:** %s\n", valueOrNA(cp.RoofReportValue))
	fmt.Fprintf(b, "- **Insurance Report:** %s\n", valueOrNA(cp.InsuranceReportValue))
	fmt.Fprintf(b, "- **Notes:** %s\n", cp.Notes)
	if cp.Warning != nil {
		fmt.Fprintf(b, "- **Warning:** %s\n", *cp.Warning)
	}
	b.WriteString("\n")
}
