package report

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sells-group/roofclaim/internal/model"
)

var pageTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #1f2933; }
.cards { display: flex; gap: 1rem; margin: 1rem 0 2rem; }
.card { flex: 1; border-radius: 8px; padding: 1rem; text-align: center; }
.card .count { font-size: 2rem; font-weight: 700; }
.card.total { background: #e4e7eb; }
.card.pass { background: #e3f9e5; color: #0e5814; }
.card.failed { background: #ffe3e3; color: #8a041a; }
.card.missing { background: #fff3c4; color: #8d2b0b; }
h3 { border-top: 1px solid #e4e7eb; padding-top: 1rem; }
</style>
</head>
<body>
<div class="cards">
{{range .Cards}}<div class="card {{.Class}}"><div class="count">{{.Count}}</div><div>{{.Label}}</div></div>
{{end}}</div>
{{.Body}}
</body>
</html>
`))

type card struct {
	Class string
	Label string
	Count int
}

// HTML renders the Markdown report to a standalone HTML page with summary
// cards above it. Extracted text is sanitized before it is embedded.
func HTML(res model.ComparisonResult, meta Meta) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(res, meta)), &body); err != nil {
		return nil, eris.Wrap(err, "report: render markdown")
	}
	safe := bluemonday.UGCPolicy().SanitizeBytes(body.Bytes())

	title := "Roof vs Insurance Report Analysis"
	if meta.TaskName != "" {
		title += " - " + meta.TaskName
	}

	var out bytes.Buffer
	err := pageTmpl.Execute(&out, struct {
		Title string
		Cards []card
		Body  template.HTML
	}{
		Title: title,
		Cards: summaryCards(res.Summary),
		Body:  template.HTML(safe), //nolint:gosec // sanitized above
	})
	if err != nil {
		return nil, eris.Wrap(err, "report: render page")
	}
	return out.Bytes(), nil
}

func summaryCards(s model.Summary) []card {
	return []card{
		{Class: "total", Label: "Total", Count: s.Total},
		{Class: "pass", Label: StatusLabel(model.StatusPass), Count: s.Pass},
		{Class: "failed", Label: StatusLabel(model.StatusFailed), Count: s.Failed},
		{Class: "missing", Label: StatusLabel(model.StatusMissing), Count: s.Missing},
	}
}
