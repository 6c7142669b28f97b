// Package oracle turns document page text into raw report JSON using a
// language model. It only guarantees syntactically valid JSON with the
// expected top-level shape; typed validation happens in package schema.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/ocr"
	"github.com/sells-group/roofclaim/internal/resilience"
	"github.com/sells-group/roofclaim/pkg/anthropic"
)

// Page is one page of document text.
type Page = ocr.Page

// Oracle extracts a report from document pages. structureCount is the
// number of roof structures the caller expects; 0 lets the model decide.
type Oracle interface {
	Extract(ctx context.Context, kind model.DocumentKind, pages []Page, structureCount int) (json.RawMessage, error)
}

// Stage names where an extraction failed.
type Stage string

const (
	StagePages   Stage = "pages"
	StageRequest Stage = "request"
	StageParse   Stage = "parse"
	StageSchema  Stage = "schema"
)

// ExtractionError is the only error type Extract returns.
type ExtractionError struct {
	Kind  model.DocumentKind
	Stage Stage
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("oracle: extract %s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Retryable reports whether the user can reasonably try again as is.
// Page and schema failures need a different document or manual entry.
func (e *ExtractionError) Retryable() bool {
	return e.Stage == StageRequest || e.Stage == StageParse
}

// isTransient decides which request failures are retried and counted by the
// circuit breaker.
func isTransient(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
