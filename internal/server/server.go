// Package server exposes the rapport pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/rapport-api/internal/fault"
	"github.com/sells-group/rapport-api/internal/model"
)

// BriefRunner is the pipeline surface the server needs.
type BriefRunner interface {
	Run(ctx context.Context, zip string) (*model.RapportResponse, error)
}

// Server routes HTTP requests onto a BriefRunner.
type Server struct {
	runner BriefRunner
	router chi.Router
}

// New builds the router and middleware stack around the runner.
func New(runner BriefRunner) *Server {
	s := &Server{runner: runner}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/zip/{zip}", s.handleZip)

	s.router = r
	return s
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleZip(w http.ResponseWriter, r *http.Request) {
	zip := chi.URLParam(r, "zip")

	resp, err := s.runner.Run(r.Context(), zip)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("server: brief failed", zap.String("zip", zip), zap.Error(err))
		}
		respondJSON(w, status, map[string]string{"detail": err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// statusFor maps the fault taxonomy onto HTTP statuses. Configuration
// problems map to 503; every other terminal failure is a bad gateway.
func statusFor(err error) int {
	switch {
	case fault.IsValidation(err):
		return http.StatusBadRequest
	case fault.IsNotFound(err):
		return http.StatusNotFound
	case fault.IsConfig(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}

type requestIDKey struct{}

// RequestID returns the request's correlation ID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID honors an incoming X-Request-ID and mints one otherwise.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("requestId", RequestID(r.Context())),
		)
	})
}
