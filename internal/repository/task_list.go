package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mtlprog/hrscore/internal/domain"
)

// TaskListFilters holds all supported filters for task listing.
type TaskListFilters struct {
	OrgID      string     // Required: tenant
	EmployeeID *string    // Optional: filter by owner
	OverdueAt  *time.Time // Optional: only open tasks due before this instant
}

// apply adds the filter conditions to a query over live tasks.
func (f TaskListFilters) apply(qb sq.SelectBuilder) sq.SelectBuilder {
	qb = qb.Where(sq.Eq{"org_id": f.OrgID, "is_deleted": false})

	if f.EmployeeID != nil {
		qb = qb.Where(sq.Eq{"employee_id": *f.EmployeeID})
	}

	if f.OverdueAt != nil {
		qb = qb.Where(sq.Lt{"due_date": f.OverdueAt.UTC()}).
			Where(sq.Eq{"status": openStatuses})
	}

	return qb
}

// List retrieves live tasks matching the filters ordered by creation time.
func (r *TaskRepository) List(ctx context.Context, filters TaskListFilters) ([]*domain.Task, error) {
	query, args, err := filters.apply(psql.Select(taskColumns...).From("tasks")).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}

// Count returns the number of live tasks matching the filters.
func (r *TaskRepository) Count(ctx context.Context, filters TaskListFilters) (int, error) {
	query, args, err := filters.apply(psql.Select("COUNT(*)").From("tasks")).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build Count query: %w", err)
	}

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// ListByEmployee returns every live task owned by the employee.
func (r *TaskRepository) ListByEmployee(ctx context.Context, orgID, employeeID string) ([]*domain.Task, error) {
	return r.List(ctx, TaskListFilters{OrgID: orgID, EmployeeID: &employeeID})
}
