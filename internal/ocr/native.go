package ocr

import (
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

// Native reads text operators straight out of page content streams with
// pdfcpu. It needs no external binary but only sees text drawn with simple
// fonts; scanned estimates need the mistral provider.
type Native struct{}

// NewNative returns a pdfcpu-backed extractor.
func NewNative() *Native { return &Native{} }

// ExtractPages returns one entry per page, empty for pages without text.
func (Native) ExtractPages(ctx context.Context, pdfPath string) ([]Page, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: open %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	pdf, err := readPDF(f)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, pdf.PageCount)
	for nr := 1; nr <= pdf.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: nr, Text: pageText(pdf, nr)})
	}
	return pages, nil
}

// PageCount validates the PDF and returns its number of pages.
func PageCount(rs io.ReadSeeker) (int, error) {
	pdf, err := readPDF(rs)
	if err != nil {
		return 0, err
	}
	return pdf.PageCount, nil
}

func readPDF(rs io.ReadSeeker) (*model.Context, error) {
	pdf, err := api.ReadValidateAndOptimize(rs, model.NewDefaultConfiguration())
	if err != nil {
		return nil, eris.Wrap(err, "ocr: invalid PDF")
	}
	return pdf, nil
}

func pageText(pdf *model.Context, nr int) string {
	r, err := pdfcpu.ExtractPageContent(pdf, nr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return contentText(data)
}

var stringLiteral = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// contentText collects string operands of Tj, TJ, ' and " and starts a new
// line on T*, Td, TD and the quote operators.
func contentText(stream []byte) string {
	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	for _, line := range bytes.Split(stream, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case bytes.Equal(line, []byte("T*")), bytes.HasSuffix(line, []byte(" Td")), bytes.HasSuffix(line, []byte(" TD")):
			newline()
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			newline()
			writeLiterals(&b, line)
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeLiterals(&b, line)
		}
	}
	return strings.TrimSpace(b.String())
}

func writeLiterals(b *strings.Builder, line []byte) {
	for _, m := range stringLiteral.FindAllSubmatch(line, -1) {
		b.WriteString(unescape(m[1]))
	}
}

var pdfEscapes = strings.NewReplacer(`\n`, "\n", `\r`, "", `\t`, "\t", `\(`, "(", `\)`, ")", `\\`, `\`)

func unescape(raw []byte) string {
	return pdfEscapes.Replace(string(raw))
}
