package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/logger"
	"github.com/mtlprog/hrscore/internal/metrics"
	"github.com/mtlprog/hrscore/internal/scoring"
)

// ScoreService serves employee scores and trends and appends score history.
type ScoreService struct {
	tasks     TaskReader
	employees EmployeeReader
	history   HistoryStore
	cfg       settings
	views     *viewCache
}

// NewScoreService creates a new ScoreService.
func NewScoreService(tasks TaskReader, employees EmployeeReader, history HistoryStore, opts ...Option) *ScoreService {
	cfg := newSettings(opts)
	return &ScoreService{
		tasks:     tasks,
		employees: employees,
		history:   history,
		cfg:       cfg,
		views:     newViewCache(cfg),
	}
}

// GetScore returns the employee's current score computed from their live tasks,
// together with the trend over persisted history.
func (s *ScoreService) GetScore(ctx context.Context, orgID, employeeID string) (_ *domain.EmployeeScore, err error) {
	ctx, span := startSpan(ctx, "ScoreService.GetScore", orgID, trace.WithAttributes(employeeAttr(employeeID)))
	defer func() { endSpan(span, err) }()

	key := s.views.keys.Score(orgID, employeeID)
	return loadView(ctx, s.views, cache.NamespaceScore, key, func(ctx context.Context) (*domain.EmployeeScore, error) {
		return s.computeScore(ctx, orgID, employeeID)
	})
}

// GetTrend returns the direction of the employee's score history.
func (s *ScoreService) GetTrend(ctx context.Context, orgID, employeeID string) (_ *domain.Trend, err error) {
	ctx, span := startSpan(ctx, "ScoreService.GetTrend", orgID, trace.WithAttributes(employeeAttr(employeeID)))
	defer func() { endSpan(span, err) }()

	key := s.views.keys.Trend(orgID, employeeID)
	return loadView(ctx, s.views, cache.NamespaceTrend, key, func(ctx context.Context) (*domain.Trend, error) {
		if err := s.requireEmployee(ctx, orgID, employeeID); err != nil {
			return nil, err
		}
		trend, err := s.computeTrend(ctx, orgID, employeeID, s.cfg.clock())
		if err != nil {
			return nil, err
		}
		return &trend, nil
	})
}

// History returns the employee's score log entries computed at or after since,
// oldest first. It always reads the store.
func (s *ScoreService) History(ctx context.Context, orgID, employeeID string, since time.Time) (_ []*domain.ScoreLogEntry, err error) {
	ctx, span := startSpan(ctx, "ScoreService.History", orgID, trace.WithAttributes(employeeAttr(employeeID)))
	defer func() { endSpan(span, err) }()

	if err := s.requireEmployee(ctx, orgID, employeeID); err != nil {
		return nil, err
	}

	return fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.ScoreLogEntry, error) {
		return s.history.QueryRange(ctx, orgID, employeeID, since)
	})
}

// RecomputeAndPersist scores the employee's current tasks, appends the result
// to the history and drops every cached view derived from it. taskID names the
// completed task whose recommendation view is dropped; it may be empty.
//
// Errors from reading or appending are returned. Invalidation failures are
// only logged.
func (s *ScoreService) RecomputeAndPersist(ctx context.Context, orgID, taskID, employeeID string) (_ *domain.ScoreLogEntry, err error) {
	ctx, span := startSpan(ctx, "ScoreService.RecomputeAndPersist", orgID,
		trace.WithAttributes(employeeAttr(employeeID), taskAttr(taskID)))
	defer func() { endSpan(span, err) }()

	if err := s.requireEmployee(ctx, orgID, employeeID); err != nil {
		return nil, err
	}

	tasks, err := fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.Task, error) {
		return s.tasks.ListByEmployee(ctx, orgID, employeeID)
	})
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	result := scoring.Score(tasks)
	entry := &domain.ScoreLogEntry{
		EmployeeID: employeeID,
		OrgID:      orgID,
		Score:      result.Score,
		Breakdown:  result.Breakdown,
		ComputedAt: s.cfg.clock(),
	}

	if err := s.history.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("append score log: %w", dependencyError(ctx, err))
	}
	metrics.RecordScorePersisted()

	keys := s.views.keys.Employee(orgID, employeeID)
	if taskID != "" {
		keys = append(keys, s.views.keys.Recommend(orgID, taskID))
	}
	keys = append(keys, s.views.keys.Dashboard(orgID))
	s.views.invalidate(ctx, keys...)

	logger.FromContext(ctx).Info("score recomputed",
		"org_id", orgID,
		"employee_id", employeeID,
		"task_id", taskID,
		"score_log_id", entry.ID,
		"score", entry.Score,
	)

	return entry, nil
}

func (s *ScoreService) requireEmployee(ctx context.Context, orgID, employeeID string) error {
	_, err := fetch(ctx, s.cfg, func(ctx context.Context) (*domain.Employee, error) {
		return s.employees.GetByID(ctx, orgID, employeeID)
	})
	return err
}

func (s *ScoreService) computeScore(ctx context.Context, orgID, employeeID string) (*domain.EmployeeScore, error) {
	if err := s.requireEmployee(ctx, orgID, employeeID); err != nil {
		return nil, err
	}

	tasks, err := fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.Task, error) {
		return s.tasks.ListByEmployee(ctx, orgID, employeeID)
	})
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	now := s.cfg.clock()
	trend, err := s.computeTrend(ctx, orgID, employeeID, now)
	if err != nil {
		return nil, err
	}

	result := scoring.Score(tasks)
	return &domain.EmployeeScore{
		EmployeeID: employeeID,
		Score:      result.Score,
		Grade:      result.Grade,
		Breakdown:  result.Breakdown,
		Trend:      trend,
		ComputedAt: now,
	}, nil
}

func (s *ScoreService) computeTrend(ctx context.Context, orgID, employeeID string, now time.Time) (domain.Trend, error) {
	entries, err := fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.ScoreLogEntry, error) {
		return s.history.QueryRange(ctx, orgID, employeeID, s.cfg.trendPolicy.Since(now))
	})
	if err != nil {
		return domain.Trend{}, fmt.Errorf("load score history: %w", err)
	}
	return scoring.AnalyzeTrend(entries, now, s.cfg.trendPolicy), nil
}
