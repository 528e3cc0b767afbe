package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/handler/dto"
	"github.com/mtlprog/hrscore/internal/logger"
	"github.com/mtlprog/hrscore/internal/metrics"
	"github.com/mtlprog/hrscore/internal/middleware"
)

// Pinger reports whether the primary store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ScoreReader serves score, trend and history views.
type ScoreReader interface {
	GetScore(ctx context.Context, orgID, employeeID string) (*domain.EmployeeScore, error)
	GetTrend(ctx context.Context, orgID, employeeID string) (*domain.Trend, error)
	History(ctx context.Context, orgID, employeeID string, since time.Time) ([]*domain.ScoreLogEntry, error)
}

// Recommender ranks candidates and reports skill gaps.
type Recommender interface {
	Recommend(ctx context.Context, orgID, taskID string) (*domain.Recommendation, error)
	DetectSkillGaps(ctx context.Context, orgID, employeeID string) (*domain.SkillGapReport, error)
}

// DashboardReader serves the organization summary.
type DashboardReader interface {
	Get(ctx context.Context, orgID string) (*domain.Dashboard, error)
}

// TaskWorkflow changes task status, reads its audit trail and queues rescoring.
type TaskWorkflow interface {
	TransitionStatus(ctx context.Context, orgID, taskID string, newStatus domain.TaskStatus) (*domain.TaskEvent, error)
	Events(ctx context.Context, orgID, taskID string) ([]*domain.TaskEvent, error)
	RequestRescore(ctx context.Context, orgID, employeeID string) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	db              Pinger
	scores          ScoreReader
	recommendations Recommender
	dashboards      DashboardReader
	tasks           TaskWorkflow
	limiter         *middleware.RateLimiter
	now             func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimiter enables per-organization rate limiting of API routes.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = rl
	}
}

// WithClock replaces the time source used for history windows.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New creates a new Handler instance with all dependencies.
func New(
	db Pinger,
	scores ScoreReader,
	recommendations Recommender,
	dashboards DashboardReader,
	tasks TaskWorkflow,
	opts ...Option,
) *Handler {
	h := &Handler{
		db:              db,
		scores:          scores,
		recommendations: recommendations,
		dashboards:      dashboards,
		tasks:           tasks,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /healthz", middleware.Metrics("GET /healthz", http.HandlerFunc(h.handleHealthz)))
	mux.Handle("GET /metrics", metrics.Handler())

	h.api(mux, "GET /api/v1/employees/{id}/score", h.handleGetScore)
	h.api(mux, "GET /api/v1/employees/{id}/trend", h.handleGetTrend)
	h.api(mux, "GET /api/v1/employees/{id}/score-history", h.handleScoreHistory)
	h.api(mux, "GET /api/v1/employees/{id}/skill-gaps", h.handleSkillGaps)
	h.api(mux, "POST /api/v1/employees/{id}/rescore", h.handleRescore)
	h.api(mux, "GET /api/v1/tasks/{id}/recommendations", h.handleRecommend)
	h.api(mux, "PATCH /api/v1/tasks/{id}/status", h.handleTransitionStatus)
	h.api(mux, "GET /api/v1/tasks/{id}/events", h.handleTaskEvents)
	h.api(mux, "GET /api/v1/dashboard", h.handleGetDashboard)
}

// Routes returns the full handler tree with request IDs attached.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return middleware.RequestID(mux)
}

// api registers a tenant-scoped route.
func (h *Handler) api(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	var next http.Handler = fn
	if h.limiter != nil {
		next = h.limiter.Middleware()(next)
	}
	mux.Handle(pattern, middleware.Metrics(pattern, middleware.Tenant(next)))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.Ping(ctx); err != nil {
		logger.FromContext(ctx).Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message, false))
}

// respondDomainError maps err to its HTTP form and writes it.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := dto.MapDomainError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	respondJSON(w, status, dto.ErrorResponse{Error: detail})
}

// extractID extracts and validates the {id} path parameter.
// Returns (id, true) if valid, ("", false) if invalid (error already sent to client).
func extractID(w http.ResponseWriter, r *http.Request, what string) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, dto.CodeInvalidRequest, what+" id is required")
		return "", false
	}

	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, dto.CodeInvalidRequest, what+"_id must be a valid UUID")
		return "", false
	}

	return id, true
}

// orgID returns the tenant set by middleware.Tenant.
func orgID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.OrgIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusBadRequest, dto.CodeInvalidRequest, "missing "+middleware.HeaderOrgID+" header")
	}
	return id, ok
}
