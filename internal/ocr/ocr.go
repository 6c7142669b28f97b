// Package ocr turns uploaded PDFs into per-page text for the extraction
// oracle. Providers: local (pdftotext), native (pdfcpu), mistral (OCR API).
package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofclaim/internal/config"
	"github.com/sells-group/roofclaim/internal/resilience"
)

// Page is the text of one PDF page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Extractor extracts page text from a PDF file.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]Page, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "native":
		return NewNative(), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		m := NewMistralOCR(cfg.MistralKey, cfg.MistralModel, resilience.DefaultRetryConfig())
		if cfg.MistralBaseURL != "" {
			m.endpoint = strings.TrimRight(cfg.MistralBaseURL, "/") + "/ocr"
		}
		return m, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// NonEmpty drops pages with no text.
func NonEmpty(pages []Page) []Page {
	out := pages[:0:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			out = append(out, p)
		}
	}
	return out
}
