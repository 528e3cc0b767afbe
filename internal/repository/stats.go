package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mtlprog/hrscore/internal/domain"
)

// OrgTaskStats holds task counters for one organization.
type OrgTaskStats struct {
	ActiveEmployees int
	TasksByStatus   map[string]int
	OverdueCount    int
}

// GetOrgStats counts active employees, live tasks by status and open tasks
// whose due date is before now.
func (r *TaskRepository) GetOrgStats(ctx context.Context, orgID string, now time.Time) (*OrgTaskStats, error) {
	stats := &OrgTaskStats{
		TasksByStatus: map[string]int{
			string(domain.TaskStatusAssigned):   0,
			string(domain.TaskStatusInProgress): 0,
			string(domain.TaskStatusCompleted):  0,
		},
	}

	query, args, err := psql.
		Select("COUNT(*)").
		From("employees").
		Where(sq.Eq{"org_id": orgID, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active employees query: %w", err)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&stats.ActiveEmployees); err != nil {
		return nil, fmt.Errorf("count active employees: %w", err)
	}

	query, args, err = psql.
		Select("status", "COUNT(*)").
		From("tasks").
		Where(sq.Eq{"org_id": orgID, "is_deleted": false}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.TasksByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}

	stats.OverdueCount, err = r.Count(ctx, TaskListFilters{OrgID: orgID, OverdueAt: &now})
	if err != nil {
		return nil, fmt.Errorf("count overdue tasks: %w", err)
	}

	return stats, nil
}
