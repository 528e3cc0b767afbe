package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/scoring"
)

// MaxCandidates is the number of candidates returned by Recommend.
const MaxCandidates = 3

// rankPlaces is the precision of the exposed rank and overlap rate.
const rankPlaces = 2

// RecommendationService ranks employees for tasks and reports skill gaps.
type RecommendationService struct {
	tasks     TaskReader
	employees EmployeeReader
	history   HistoryStore
	cfg       settings
	views     *viewCache
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(tasks TaskReader, employees EmployeeReader, history HistoryStore, opts ...Option) *RecommendationService {
	cfg := newSettings(opts)
	return &RecommendationService{
		tasks:     tasks,
		employees: employees,
		history:   history,
		cfg:       cfg,
		views:     newViewCache(cfg),
	}
}

// Recommend returns the best candidates for a task, highest rank first.
//
// When the task has an assignee with a department, only active employees of
// that department are considered; otherwise every active employee of the
// organization is. Ties are broken by name, then by ID.
func (s *RecommendationService) Recommend(ctx context.Context, orgID, taskID string) (_ *domain.Recommendation, err error) {
	ctx, span := startSpan(ctx, "RecommendationService.Recommend", orgID, trace.WithAttributes(taskAttr(taskID)))
	defer func() { endSpan(span, err) }()

	key := s.views.keys.Recommend(orgID, taskID)
	return loadView(ctx, s.views, cache.NamespaceRecommend, key, func(ctx context.Context) (*domain.Recommendation, error) {
		return s.computeRecommendation(ctx, orgID, taskID)
	})
}

// DetectSkillGaps compares the employee's skills with the skills required by
// tasks of peers sharing their job title. Without a job title the employee's
// own task history is the basis.
func (s *RecommendationService) DetectSkillGaps(ctx context.Context, orgID, employeeID string) (_ *domain.SkillGapReport, err error) {
	ctx, span := startSpan(ctx, "RecommendationService.DetectSkillGaps", orgID, trace.WithAttributes(employeeAttr(employeeID)))
	defer func() { endSpan(span, err) }()

	key := s.views.keys.SkillGap(orgID, employeeID)
	return loadView(ctx, s.views, cache.NamespaceSkillGap, key, func(ctx context.Context) (*domain.SkillGapReport, error) {
		return s.computeSkillGaps(ctx, orgID, employeeID)
	})
}

func (s *RecommendationService) candidatePool(ctx context.Context, orgID string, task *domain.Task) ([]*domain.Employee, error) {
	var department *string
	if task.EmployeeID != nil {
		assignee, err := fetch(ctx, s.cfg, func(ctx context.Context) (*domain.Employee, error) {
			return s.employees.GetByID(ctx, orgID, *task.EmployeeID)
		})
		switch {
		case err == nil:
			if assignee.HasDepartment() {
				department = assignee.Department
			}
		case errors.Is(err, domain.ErrNotFound):
			// dangling assignee: fall back to the whole organization
		default:
			return nil, fmt.Errorf("load assignee: %w", err)
		}
	}

	return fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.Employee, error) {
		return s.employees.ListActive(ctx, orgID, department)
	})
}

func (s *RecommendationService) computeRecommendation(ctx context.Context, orgID, taskID string) (*domain.Recommendation, error) {
	task, err := fetch(ctx, s.cfg, func(ctx context.Context) (*domain.Task, error) {
		return s.tasks.GetByID(ctx, orgID, taskID)
	})
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidatePool(ctx, orgID, task)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	var (
		openCounts map[string]int
		latest     map[string]*domain.ScoreLogEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := fetch(gctx, s.cfg, func(ctx context.Context) (map[string]int, error) {
			return s.tasks.CountOpenByEmployees(ctx, orgID, ids)
		})
		if err != nil {
			return fmt.Errorf("count open tasks: %w", err)
		}
		openCounts = counts
		return nil
	})
	g.Go(func() error {
		entries, err := fetch(gctx, s.cfg, func(ctx context.Context) (map[string]*domain.ScoreLogEntry, error) {
			return s.history.LatestPerEmployee(ctx, orgID, ids)
		})
		if err != nil {
			return fmt.Errorf("load latest scores: %w", err)
		}
		latest = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	required := scoring.UnionSkills(task.RequiredSkills)
	type ranked struct {
		entry domain.RecommendationEntry
		rank  float64
	}
	all := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		overlap := scoring.SkillOverlap(c.Skills, required)
		active := openCounts[c.ID]
		perf := scoring.DefaultPerfScore
		if e := latest[c.ID]; e != nil && e.HasScore() {
			perf = *e.Score
		}
		rank := scoring.Rank(overlap, len(required), active, perf)

		all = append(all, ranked{
			rank: rank,
			entry: domain.RecommendationEntry{
				EmployeeID:       c.ID,
				Name:             c.Name,
				SkillOverlap:     overlap,
				SkillOverlapRate: scoring.RoundTo(scoring.OverlapRate(overlap, len(required)), rankPlaces),
				ActiveTasks:      active,
				PerfScore:        perf,
				Rank:             scoring.RoundTo(rank, rankPlaces),
			},
		})
	}

	slices.SortFunc(all, func(a, b ranked) int {
		if c := cmp.Compare(b.rank, a.rank); c != 0 {
			return c
		}
		if c := cmp.Compare(a.entry.Name, b.entry.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.entry.EmployeeID, b.entry.EmployeeID)
	})

	top := make([]domain.RecommendationEntry, 0, MaxCandidates)
	for i := 0; i < len(all) && i < MaxCandidates; i++ {
		top = append(top, all[i].entry)
	}

	return &domain.Recommendation{
		TaskID:         task.ID,
		RequiredSkills: required,
		Candidates:     top,
		ComputedAt:     s.cfg.clock(),
	}, nil
}

func (s *RecommendationService) computeSkillGaps(ctx context.Context, orgID, employeeID string) (*domain.SkillGapReport, error) {
	employee, err := fetch(ctx, s.cfg, func(ctx context.Context) (*domain.Employee, error) {
		return s.employees.GetByID(ctx, orgID, employeeID)
	})
	if err != nil {
		return nil, err
	}

	var (
		basis string
		lists [][]string
	)
	if employee.HasJobTitle() {
		basis = domain.SkillGapBasisJobTitle
		lists, err = fetch(ctx, s.cfg, func(ctx context.Context) ([][]string, error) {
			return s.tasks.RequiredSkillsByJobTitle(ctx, orgID, *employee.JobTitle)
		})
		if err != nil {
			return nil, fmt.Errorf("load peer skills: %w", err)
		}
	} else {
		basis = domain.SkillGapBasisOwnHistory
		tasks, err := fetch(ctx, s.cfg, func(ctx context.Context) ([]*domain.Task, error) {
			return s.tasks.ListByEmployee(ctx, orgID, employeeID)
		})
		if err != nil {
			return nil, fmt.Errorf("load tasks: %w", err)
		}
		for _, t := range tasks {
			lists = append(lists, t.RequiredSkills)
		}
	}

	union := scoring.UnionSkills(lists...)
	gaps := scoring.Gaps(employee.Skills, union)

	return &domain.SkillGapReport{
		EmployeeID:     employeeID,
		Basis:          basis,
		CurrentSkills:  scoring.UnionSkills(employee.Skills),
		RequiredSkills: union,
		GapSkills:      gaps.GapSkills,
		CoverageRate:   scoring.RoundTo(gaps.CoverageRate, 3),
		ComputedAt:     s.cfg.clock(),
	}, nil
}
