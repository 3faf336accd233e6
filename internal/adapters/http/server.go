// Package http exposes the turn controller over a JSON REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harmonyshop/cadenza/internal/controller"
	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/observability"
)

// Controller is the turn driver the server delegates to.
type Controller interface {
	Submit(ctx context.Context, threadID, text string) (domain.TurnResult, error)
	Resume(ctx context.Context, threadID, value string) (domain.TurnResult, error)
	Get(ctx context.Context, threadID string) (*domain.State, error)
	Reset(ctx context.Context, threadID string) error
	Threads(ctx context.Context) ([]string, error)
}

// Server routes thread requests to a Controller.
type Server struct {
	ctrl    Controller
	metrics *observability.Metrics
	logger  *slog.Logger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts a Prometheus endpoint at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version string reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler builds the HTTP handler for the controller.
func NewHandler(ctrl Controller, opts ...Option) http.Handler {
	s := &Server{
		ctrl:    ctrl,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Route("/threads", func(r chi.Router) {
		r.Get("/", s.listThreads)
		r.Route("/{threadID}", func(r chi.Router) {
			r.Get("/", s.getThread)
			r.Delete("/", s.deleteThread)
			r.Post("/messages", s.postMessage)
			r.Post("/resume", s.postResume)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type messageRequest struct {
	Text string `json:"text"`
}

type resumeRequest struct {
	Value string `json:"value"`
}

// turnResponse is the wire form of one turn's outcome.
type turnResponse struct {
	Outbox    []domain.OutboxItem `json:"outbox"`
	Prompt    *domain.Prompt      `json:"prompt,omitempty"`
	Suspended bool                `json:"suspended"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var body messageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("message: invalid request body", "error", err)
		return
	}
	if body.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	result, err := s.ctrl.Submit(r.Context(), threadID, body.Text)
	if err != nil {
		s.writeError(w, "submit", threadID, err)
		return
	}
	s.writeTurn(w, result)
}

func (s *Server) postResume(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var body resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("resume: invalid request body", "error", err)
		return
	}

	result, err := s.ctrl.Resume(r.Context(), threadID, body.Value)
	if err != nil {
		s.writeError(w, "resume", threadID, err)
		return
	}
	s.writeTurn(w, result)
}

// threadResponse is a read-only projection of the thread state. Flow slices
// stay server-side; clients see the conversation and the open prompt.
type threadResponse struct {
	ThreadID string           `json:"thread_id"`
	History  []domain.Message `json:"history"`
	Pending  *domain.Pending  `json:"pending,omitempty"`
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	state, err := s.ctrl.Get(r.Context(), threadID)
	if err != nil {
		s.writeError(w, "get", threadID, err)
		return
	}
	s.writeJSON(w, threadResponse{
		ThreadID: state.ThreadID,
		History:  state.History,
		Pending:  state.Pending,
	})
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	if err := s.ctrl.Reset(r.Context(), threadID); err != nil {
		s.writeError(w, "delete", threadID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.ctrl.Threads(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("list threads failed", "error", err)
		return
	}
	if threads == nil {
		threads = []string{}
	}
	s.writeJSON(w, map[string][]string{"threads": threads})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":     "cadenza-http",
		"version": s.version,
	})
}

func (s *Server) writeTurn(w http.ResponseWriter, result domain.TurnResult) {
	s.writeJSON(w, turnResponse{
		Outbox:    result.Outbox,
		Prompt:    result.Prompt,
		Suspended: result.Suspended(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, op, threadID string, err error) {
	switch {
	case errors.Is(err, domain.ErrThreadNotFound):
		http.Error(w, "thread not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrThreadBusy):
		http.Error(w, "thread busy, retry shortly", http.StatusConflict)
	case errors.Is(err, domain.ErrNoPendingPrompt):
		http.Error(w, "no pending prompt to resume", http.StatusConflict)
	case errors.Is(err, controller.ErrInputTooLarge), errors.Is(err, controller.ErrInvalidUTF8):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("request failed", "op", op, "thread_id", threadID, "error", err)
	}
}
