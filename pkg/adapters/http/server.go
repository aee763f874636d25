package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SessionReader reads checkpointed conversation state.
type SessionReader interface {
	State(ctx context.Context, sessionID string) (*domain.SessionState, error)
}

// GraphFunc renders the workflow, highlighting the visited nodes.
type GraphFunc func(visited []string) string

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Runner   *runner.Runner
	Plans    ports.PlanRepository
	Sessions SessionReader
	Graph    GraphFunc
	Metrics  http.Handler

	version string
	origin  string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithPlans enables the /plans routes.
func WithPlans(repo ports.PlanRepository) Option {
	return func(s *Server) {
		s.Plans = repo
	}
}

// WithSessions enables GET /sessions/{id} and graph overlays.
func WithSessions(r SessionReader) Option {
	return func(s *Server) {
		s.Sessions = r
	}
}

// WithGraph enables GET /graph.
func WithGraph(fn GraphFunc) Option {
	return func(s *Server) {
		s.Graph = fn
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithAllowedOrigin sets the CORS origin. Defaults to "*".
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		s.origin = origin
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler. Domain routes are served both at the
// root and under /api/travel.
func NewHandler(r *runner.Runner, opts ...Option) http.Handler {
	s := &Server{
		Runner:  r,
		version: "dev",
		origin:  "*",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(s.cors)

	mux.Get("/health", s.GetHealth)
	mux.Get("/info", s.GetInfo)
	mux.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec())
	})
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}

	mux.Group(s.routes)
	mux.Route("/api/travel", s.routes)
	return mux
}

func (s *Server) routes(r chi.Router) {
	r.Post("/chat/stream", s.ChatStream)
	if s.Plans != nil {
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", s.ListPlans)
			r.Post("/", s.CreatePlan)
			r.Get("/{id}", s.GetPlan)
			r.Patch("/{id}/status", s.PatchPlan)
			r.Delete("/{id}", s.DeletePlan)
		})
	}
	if s.Sessions != nil {
		r.Get("/sessions/{id}", s.GetSession)
	}
	if s.Graph != nil {
		r.Get("/graph", s.GetGraph)
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	} else if err != nil {
		s.logger.Error("openapi document unavailable", "err", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "compass-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Sessions.State(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var visited []string
	if id := r.URL.Query().Get("session_id"); id != "" && s.Sessions != nil {
		state, err := s.Sessions.State(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		visited = state.Visited
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.Graph(visited)))
}

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPlan), errors.Is(err, runner.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		msg = http.StatusText(code)
	}
	s.writeJSON(w, code, errorBody{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
