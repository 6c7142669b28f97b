// Package server exposes the review pipeline over HTTP for the review UI.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/config"
	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/report"
	"github.com/sells-group/roofclaim/internal/review"
	"github.com/sells-group/roofclaim/internal/store"
)

// Service is the pipeline surface the API needs.
type Service interface {
	CreateTask(ctx context.Context, userID, name string) (*model.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (*model.Task, error)
	ListTasks(ctx context.Context, userID string, filter store.TaskFilter) ([]model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
	UploadFile(ctx context.Context, userID, taskID string, kind model.DocumentKind, name string, r io.Reader) (*model.Task, error)
	DeleteFiles(ctx context.Context, userID, taskID string, ids []string) (*model.Task, error)
	Extract(ctx context.Context, userID, taskID string, kind model.DocumentKind, structureCount int) (*model.Task, error)
	ExtractAll(ctx context.Context, userID, taskID string) (*model.Task, error)
	EditRoof(ctx context.Context, userID, taskID string, edits []review.Edit) (*model.Task, error)
	EditInsurance(ctx context.Context, userID, taskID string, edits []review.Edit) (*model.Task, error)
	GenerateAnalysis(ctx context.Context, userID, taskID string) (*model.Task, error)
	Report(ctx context.Context, userID, taskID string, format report.Format) ([]byte, error)
	CompareRaw(ctx context.Context, roofRaw, insuranceRaw json.RawMessage) (*model.ComparisonResult, error)
}

// UserHeader carries the caller's user ID. Authentication happens in front
// of this service.
const UserHeader = "X-User-ID"

// Server holds the API handlers.
type Server struct {
	svc         Service
	maxUpload   int64
	corsOrigins []string
}

// New creates a Server. maxUploadMB <= 0 defaults to 50.
func New(svc Service, cfg config.ServerConfig, maxUploadMB int) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Server{
		svc:         svc,
		maxUpload:   int64(maxUploadMB) << 20,
		corsOrigins: cfg.CORSOrigins,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", UserHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/compare", s.handleCompare)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleListTasks)

			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Delete("/", s.handleDeleteTask)
				r.Post("/files", s.handleUpload)
				r.Delete("/files", s.handleDeleteFiles)
				r.Post("/extract", s.handleExtract)
				r.Patch("/roof", s.handleEditRoof)
				r.Patch("/insurance", s.handleEditInsurance)
				r.Post("/analysis", s.handleAnalysis)
				r.Get("/report", s.handleReport)
			})
		})
	})
	return r
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+UserHeader+" header", false)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}
