package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/oracle"
	"github.com/sells-group/roofclaim/internal/pipeline"
	"github.com/sells-group/roofclaim/internal/review"
	"github.com/sells-group/roofclaim/internal/schema"
	"github.com/sells-group/roofclaim/internal/store"
)

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func writeError(w http.ResponseWriter, status int, msg string, retryable bool) {
	writeJSON(w, status, errorBody{Error: msg, Retryable: retryable})
}

// respondErr maps a pipeline error to a short message. Details go to the
// log, not the client.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, retryable := classify(err)
	log := zap.L().With(
		zap.String("path", r.URL.Path),
		zap.String("user_id", userID(r)),
		zap.Int("status", status),
	)
	if status >= 500 {
		log.Error("server: request failed", zap.Error(err))
	} else {
		log.Info("server: request rejected", zap.Error(err))
	}
	writeError(w, status, msg, retryable)
}

func classify(err error) (int, string, bool) {
	var (
		inErr     *pipeline.InputError
		exErr     *oracle.ExtractionError
		schemaErr *schema.SchemaError
		editErr   *review.EditError
		pErr      *store.PersistenceError
	)
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound, "task not found", false
	case errors.As(err, &inErr):
		return http.StatusBadRequest, inErr.Msg, false
	case errors.As(err, &exErr):
		if exErr.Retryable() {
			return http.StatusBadGateway, fmt.Sprintf("could not extract the %s report, please try again", exErr.Kind), true
		}
		return http.StatusUnprocessableEntity, fmt.Sprintf("could not read the %s report, check the document or enter the data manually", exErr.Kind), false
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, schemaErr.Error(), false
	case errors.As(err, &editErr):
		return http.StatusUnprocessableEntity, editErr.Error(), false
	case errors.As(err, &pErr):
		return http.StatusServiceUnavailable, "could not save changes, please try again", true
	default:
		return http.StatusInternalServerError, "internal error", false
	}
}
