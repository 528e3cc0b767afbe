package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/hrscore/internal/domain"
)

// TaskEventRepository handles database operations for task events.
type TaskEventRepository struct {
	pool *pgxpool.Pool
}

// NewTaskEventRepository creates a new TaskEventRepository.
func NewTaskEventRepository(pool *pgxpool.Pool) *TaskEventRepository {
	return &TaskEventRepository{pool: pool}
}

// createTaskEvent inserts an event inside tx and fills its ID.
func createTaskEvent(ctx context.Context, tx pgx.Tx, event *domain.TaskEvent) error {
	qb := psql.
		Insert("task_events").
		Columns("task_id", "org_id", "old_status", "new_status")
	values := []any{event.TaskID, event.OrgID, event.OldStatus, event.NewStatus}
	if !event.CreatedAt.IsZero() {
		qb = qb.Columns("created_at")
		values = append(values, event.CreatedAt)
	}

	query, args, err := qb.
		Values(values...).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&event.ID, &event.CreatedAt); err != nil {
		return fmt.Errorf("create task event: %w", err)
	}

	return nil
}

// GetByTaskID retrieves all events for a task within the organization,
// oldest first.
func (r *TaskEventRepository) GetByTaskID(ctx context.Context, orgID, taskID string) ([]*domain.TaskEvent, error) {
	query, args, err := psql.
		Select("id", "task_id", "org_id", "old_status", "new_status", "created_at").
		From("task_events").
		Where(sq.Eq{"task_id": taskID, "org_id": orgID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task events: %w", err)
	}
	defer rows.Close()

	events := []*domain.TaskEvent{}
	for rows.Next() {
		var event domain.TaskEvent
		err := rows.Scan(
			&event.ID,
			&event.TaskID,
			&event.OrgID,
			&event.OldStatus,
			&event.NewStatus,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return events, nil
}
