package service

import (
	"context"
	"fmt"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/repository"
	"github.com/mtlprog/hrscore/internal/scoring"
)

// DashboardService builds the per-organization summary.
type DashboardService struct {
	stats     StatsReader
	employees EmployeeReader
	history   HistoryStore
	cfg       settings
	views     *viewCache
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(stats StatsReader, employees EmployeeReader, history HistoryStore, opts ...Option) *DashboardService {
	cfg := newSettings(opts)
	return &DashboardService{
		stats:     stats,
		employees: employees,
		history:   history,
		cfg:       cfg,
		views:     newViewCache(cfg),
	}
}

// Get returns task counters and the distribution of the latest scores of
// active employees.
func (s *DashboardService) Get(ctx context.Context, orgID string) (_ *domain.Dashboard, err error) {
	ctx, span := startSpan(ctx, "DashboardService.Get", orgID)
	defer func() { endSpan(span, err) }()

	key := s.views.keys.Dashboard(orgID)
	return loadView(ctx, s.views, cache.NamespaceDashboard, key, func(ctx context.Context) (*domain.Dashboard, error) {
		return s.compute(ctx, orgID)
	})
}

func (s *DashboardService) compute(ctx context.Context, orgID string) (*domain.Dashboard, error) {
	now := s.cfg.clock()

	stats, err := fetch(ctx, s.cfg, func(ctx context.Context) (*repository.OrgTaskStats, error) {
		return s.stats.GetOrgStats(ctx, orgID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("load task stats: %w", err)
	}

	employees, err := fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.Employee, error) {
		return s.employees.ListActive(ctx, orgID, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}

	ids := make([]string, len(employees))
	for i, e := range employees {
		ids[i] = e.ID
	}

	latest, err := fetch(ctx, s.cfg, func(ctx context.Context) (map[string]*domain.ScoreLogEntry, error) {
		return s.history.LatestPerEmployee(ctx, orgID, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("load latest scores: %w", err)
	}

	distribution := map[domain.Grade]int{
		domain.GradeAPlus: 0,
		domain.GradeA:     0,
		domain.GradeB:     0,
		domain.GradeC:     0,
		domain.GradeD:     0,
	}
	var (
		sum    float64
		scored int
	)
	for _, id := range ids {
		e := latest[id]
		if e == nil || !e.HasScore() {
			continue
		}
		sum += *e.Score
		scored++
		distribution[scoring.GradeFor(*e.Score)]++
	}

	var average *float64
	if scored > 0 {
		avg := scoring.RoundTo(sum/float64(scored), 1)
		average = &avg
	}

	return &domain.Dashboard{
		OrgID:             orgID,
		ActiveEmployees:   stats.ActiveEmployees,
		TasksByStatus:     stats.TasksByStatus,
		OverdueTasks:      stats.OverdueCount,
		ScoredEmployees:   scored,
		AverageScore:      average,
		GradeDistribution: distribution,
		ComputedAt:        now,
	}, nil
}
