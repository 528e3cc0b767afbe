// Package service implements the scoring, recommendation and task workflows
// on top of the stores and the optional cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/repository"
	"github.com/mtlprog/hrscore/internal/scoring"
)

// DefaultDependencyTimeout bounds each store read when no option overrides it.
const DefaultDependencyTimeout = 3 * time.Second

var tracer = otel.Tracer("github.com/mtlprog/hrscore/internal/service")

// TaskReader reads tasks scoped to one organization.
type TaskReader interface {
	GetByID(ctx context.Context, orgID, taskID string) (*domain.Task, error)
	ListByEmployee(ctx context.Context, orgID, employeeID string) ([]*domain.Task, error)
	CountOpenByEmployees(ctx context.Context, orgID string, employeeIDs []string) (map[string]int, error)
	RequiredSkillsByJobTitle(ctx context.Context, orgID, jobTitle string) ([][]string, error)
}

// TaskWriter applies status transitions atomically.
type TaskWriter interface {
	ApplyTransition(
		ctx context.Context,
		orgID, taskID string,
		newStatus domain.TaskStatus,
		at time.Time,
		check repository.TransitionCheck,
	) (*domain.Task, *domain.TaskEvent, error)
}

// TaskStore reads a task and applies its status transitions.
type TaskStore interface {
	GetByID(ctx context.Context, orgID, taskID string) (*domain.Task, error)
	TaskWriter
}

// TaskEventReader reads the audit trail of status changes.
type TaskEventReader interface {
	GetByTaskID(ctx context.Context, orgID, taskID string) ([]*domain.TaskEvent, error)
}

// EmployeeReader reads employees scoped to one organization.
type EmployeeReader interface {
	GetByID(ctx context.Context, orgID, employeeID string) (*domain.Employee, error)
	ListActive(ctx context.Context, orgID string, department *string) ([]*domain.Employee, error)
}

// HistoryStore is the append-only score history.
type HistoryStore interface {
	Insert(ctx context.Context, entry *domain.ScoreLogEntry) error
	QueryRange(ctx context.Context, orgID, employeeID string, since time.Time) ([]*domain.ScoreLogEntry, error)
	LatestPerEmployee(ctx context.Context, orgID string, employeeIDs []string) (map[string]*domain.ScoreLogEntry, error)
}

// StatsReader aggregates organization-wide task counters.
type StatsReader interface {
	GetOrgStats(ctx context.Context, orgID string, now time.Time) (*repository.OrgTaskStats, error)
}

// Dispatcher accepts completion events for background rescoring.
type Dispatcher interface {
	OnTaskCompleted(ctx context.Context, event domain.TaskCompletedEvent) error
}

// settings are shared by every service constructor.
type settings struct {
	now               func() time.Time
	dependencyTimeout time.Duration
	trendPolicy       scoring.TrendPolicy
	cache             cache.Cache
	keys              cache.Keys
}

func newSettings(opts []Option) settings {
	s := settings{
		now:               time.Now,
		dependencyTimeout: DefaultDependencyTimeout,
		trendPolicy:       scoring.DefaultTrendPolicy(),
		cache:             cache.NewNoop(),
		keys:              cache.NewKeys(cache.DefaultPrefix),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a service.
type Option func(*settings)

// WithClock replaces the time source. Results computed from the cache and
// from the stores agree only when both paths share a clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDependencyTimeout sets the per-read budget.
func WithDependencyTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.dependencyTimeout = d
		}
	}
}

// WithTrendPolicy overrides the trend windows.
func WithTrendPolicy(p scoring.TrendPolicy) Option {
	return func(s *settings) {
		if p.Recent > 0 && p.Lookback > p.Recent {
			s.trendPolicy = p
		}
	}
}

// WithCache enables caching of read models. A nil cache disables it.
func WithCache(c cache.Cache, keys cache.Keys) Option {
	return func(s *settings) {
		if c != nil {
			s.cache = c
			s.keys = keys
		}
	}
}

// clock returns the current time in UTC.
func (s settings) clock() time.Time {
	return s.now().UTC()
}

// fetch runs one store read under the dependency budget. Failures are
// classified by dependencyError.
func fetch[T any](ctx context.Context, s settings, read func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.dependencyTimeout)
	defer cancel()

	v, err := read(ctx)
	if err != nil {
		var zero T
		return zero, dependencyError(ctx, err)
	}
	return v, nil
}

// dependencyError marks a deadline hit as domain.ErrDependencyTimeout and an
// unreachable store as domain.ErrDependencyUnavailable. Other errors pass
// through unchanged.
func dependencyError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrDependencyTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case repository.IsUnavailable(err):
		return fmt.Errorf("%w: %w", domain.ErrDependencyUnavailable, err)
	default:
		return err
	}
}

// startSpan opens a span tagged with the tenant.
func startSpan(ctx context.Context, name, orgID string, attrs ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts := append([]trace.SpanStartOption{trace.WithAttributes(orgAttr(orgID))}, attrs...)
	return tracer.Start(ctx, name, opts...)
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func orgAttr(orgID string) attribute.KeyValue {
	return attribute.String("org.id", orgID)
}

func employeeAttr(employeeID string) attribute.KeyValue {
	return attribute.String("employee.id", employeeID)
}

func taskAttr(taskID string) attribute.KeyValue {
	return attribute.String("task.id", taskID)
}
