package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/report"
	"github.com/sells-group/roofclaim/internal/review"
	"github.com/sells-group/roofclaim/internal/store"
)

const maxJSONBody = 10 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", false)
		return false
	}
	return true
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	task, err := s.svc.CreateTask(r.Context(), userID(r), req.Name)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TaskFilter{Status: model.TaskStatus(q.Get("status"))}
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number", false)
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "offset must be a number", false)
			return
		}
	}

	tasks, err := s.svc.ListTasks(r.Context(), userID(r), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.GetTask(r.Context(), userID(r), chi.URLParam(r, "taskID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(r.Context(), userID(r), chi.URLParam(r, "taskID")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseDocumentKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "kind must be roof or insurance", false)
		return
	}

	if r.ContentLength > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", s.maxUpload>>20), false)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", s.maxUpload>>20), false)
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required", false)
		return
	}
	defer file.Close() //nolint:errcheck

	task, err := s.svc.UploadFile(r.Context(), userID(r), chi.URLParam(r, "taskID"), kind, header.Filename, file)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := s.svc.DeleteFiles(r.Context(), userID(r), chi.URLParam(r, "taskID"), req.IDs)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleExtract extracts one document when kind is given, otherwise both.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind           string `json:"kind"`
		StructureCount int    `json:"structureCount"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	taskID := chi.URLParam(r, "taskID")

	var (
		task *model.Task
		err  error
	)
	if req.Kind == "" {
		task, err = s.svc.ExtractAll(r.Context(), userID(r), taskID)
	} else {
		kind, kerr := model.ParseDocumentKind(req.Kind)
		if kerr != nil {
			writeError(w, http.StatusBadRequest, "kind must be roof or insurance", false)
			return
		}
		task, err = s.svc.Extract(r.Context(), userID(r), taskID, kind, req.StructureCount)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type editRequest struct {
	Edits []review.Edit `json:"edits"`
}

func (s *Server) handleEditRoof(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := s.svc.EditRoof(r.Context(), userID(r), chi.URLParam(r, "taskID"), req.Edits)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleEditInsurance(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := s.svc.EditInsurance(r.Context(), userID(r), chi.URLParam(r, "taskID"), req.Edits)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.GenerateAnalysis(r.Context(), userID(r), chi.URLParam(r, "taskID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "format must be md, html, xlsx or json", false)
		return
	}
	body, err := s.svc.Report(r.Context(), userID(r), chi.URLParam(r, "taskID"), format)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format != report.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename("")))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Roof      json.RawMessage `json:"roof"`
		Insurance json.RawMessage `json:"insurance"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Roof) == 0 || len(req.Insurance) == 0 {
		writeError(w, http.StatusBadRequest, "roof and insurance are required", false)
		return
	}
	res, err := s.svc.CompareRaw(r.Context(), req.Roof, req.Insurance)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
