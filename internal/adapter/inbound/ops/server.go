package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonny/askuser-bot/internal/adapter/inbound/ops/middleware"
	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/inbound"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
	"github.com/jonny/askuser-bot/pkg/apierror"
	"github.com/jonny/askuser-bot/pkg/health"
	"github.com/jonny/askuser-bot/pkg/version"
)

// ServerConfig holds ops HTTP server configuration.
type ServerConfig struct {
	Addr              string
	Token             string
	RequestsPerMinute int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// Deps are the collaborators the routes read from.
type Deps struct {
	Checker *health.Checker
	Metrics http.Handler
	Status  inbound.StatusReporter
	History outbound.HistoryRepository
}

// Server is the loopback-facing operations endpoint. It never touches MCP traffic.
type Server struct {
	cfg     ServerConfig
	deps    Deps
	limiter *middleware.RateLimiter
	logger  *slog.Logger
	srv     *http.Server
}

func NewServer(cfg ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}
	if deps.Checker == nil {
		deps.Checker = health.NewChecker()
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: middleware.NewRateLimiter(cfg.RequestsPerMinute, nil),
		logger:  logger,
	}
}

// Router builds the route tree:
//
//	GET /healthz   liveness
//	GET /readyz    readiness checks
//	GET /metrics   Prometheus exposition      (token)
//	GET /status    version and in-flight counts (token)
//	GET /history   finished interactions      (token)
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging(s.logger))
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", s.deps.Checker.LivenessHandler())
	r.Get("/readyz", s.deps.Checker.ReadinessHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(s.cfg.Token))
		if s.deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
		}
		r.Get("/status", s.handleStatus)
		if s.deps.History != nil {
			r.Get("/history", s.handleHistory)
		}
	})

	return r
}

type statusResponse struct {
	version.Info
	PendingSessions  int `json:"pending_sessions"`
	PendingReminders int `json:"pending_reminders"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Info: version.Get()}
	if s.deps.Status != nil {
		resp.PendingSessions = s.deps.Status.PendingSessions()
		resp.PendingReminders = s.deps.Status.PendingReminders()
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyResponse struct {
	Items      []model.InteractionRecord `json:"items"`
	TotalCount int64                     `json:"total_count"`
	Page       int                       `json:"page"`
	Size       int                       `json:"size"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseHistoryQuery(r)
	if err != nil {
		apierror.Write(w, apierror.BadRequest(err.Error()))
		return
	}

	res, err := s.deps.History.List(r.Context(), filter, page)
	if err != nil {
		s.logger.Error("listing history failed", "error", err)
		apierror.Write(w, apierror.Unavailable("history"))
		return
	}

	items := res.Items
	if items == nil {
		items = []model.InteractionRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Page:       res.Page,
		Size:       res.Size,
	})
}

func parseHistoryQuery(r *http.Request) (outbound.HistoryFilter, outbound.PageRequest, error) {
	q := r.URL.Query()
	filter := outbound.HistoryFilter{
		Kind:    model.Kind(q.Get("kind")),
		Outcome: model.Outcome(q.Get("outcome")),
	}
	page := outbound.PageRequest{OrderBy: "started_at", Desc: true}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, page, fmt.Errorf("since: %w", err)
		}
		filter.Since = &t
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, page, errors.New("page must be a non-negative integer")
		}
		page.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return filter, page, errors.New("size must be between 1 and 100")
		}
		page.Size = n
	}
	return filter, page, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	evictCtx, stopEvict := context.WithCancel(ctx)
	defer stopEvict()
	go s.limiter.RunEviction(evictCtx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", "addr", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	}
}
