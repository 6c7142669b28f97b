package report

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofclaim/internal/model"
)

// Format is an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatXLSX     Format = "xlsx"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or common alias. Empty means Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Filename suggests a download name for a report of this format.
func (f Format) Filename(base string) string {
	if base == "" {
		base = "roof-vs-insurance"
	}
	return base + "." + string(f)
}

// Render produces the report in the requested format.
func Render(f Format, res model.ComparisonResult, meta Meta) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(Markdown(res, meta)), nil
	case FormatHTML:
		return HTML(res, meta)
	case FormatXLSX:
		return XLSX(res, meta)
	case FormatJSON:
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, eris.Wrap(err, "report: encode json")
		}
		return b, nil
	default:
		return nil, eris.Errorf("report: unknown format %q", f)
	}
}
