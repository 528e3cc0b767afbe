package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/hrscore/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "org_id", "title", "status", "complexity", "due_date", "completed_at",
	"required_skills", "employee_id", "is_deleted", "created_at", "updated_at",
}

// openStatuses are the statuses counted as active workload.
var openStatuses = []domain.TaskStatus{
	domain.TaskStatusAssigned,
	domain.TaskStatusInProgress,
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.OrgID,
		&task.Title,
		&task.Status,
		&task.Complexity,
		&task.DueDate,
		&task.CompletedAt,
		&task.RequiredSkills,
		&task.EmployeeID,
		&task.IsDeleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if task.RequiredSkills == nil {
		task.RequiredSkills = []string{}
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a live task by ID within the organization.
// Tasks of other organizations are reported as not found.
func (r *TaskRepository) GetByID(ctx context.Context, orgID, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID, "org_id": orgID, "is_deleted": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// getByIDForUpdate retrieves a task with FOR UPDATE lock (within transaction).
func getByIDForUpdate(ctx context.Context, tx pgx.Tx, orgID, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID, "org_id": orgID, "is_deleted": false}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForUpdate query for task %s: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// updateStatus updates the task status with optimistic locking.
// Returns ErrTaskConflict if the task was modified (oldStatus doesn't match).
func updateStatus(
	ctx context.Context,
	tx pgx.Tx,
	orgID string,
	taskID string,
	oldStatus domain.TaskStatus,
	newStatus domain.TaskStatus,
	completedAt *time.Time,
	at time.Time,
) error {
	query, args, err := psql.
		Update("tasks").
		Set("status", newStatus).
		Set("completed_at", completedAt).
		Set("updated_at", at).
		Where(sq.Eq{
			"id":     taskID,
			"org_id": orgID,
			"status": oldStatus,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateStatus query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTaskConflict
	}

	return nil
}

// TransitionCheck validates a locked task before its status changes.
type TransitionCheck func(task *domain.Task) error

// ApplyTransition moves a task to newStatus in one transaction: the row is
// locked, check is run, the status is compare-and-set against the locked value,
// and an audit event is written. completed_at is stamped with at when the task
// enters COMPLETED.
func (r *TaskRepository) ApplyTransition(
	ctx context.Context,
	orgID string,
	taskID string,
	newStatus domain.TaskStatus,
	at time.Time,
	check TransitionCheck,
) (*domain.Task, *domain.TaskEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := getByIDForUpdate(ctx, tx, orgID, taskID)
	if err != nil {
		return nil, nil, err
	}

	if check != nil {
		if err := check(task); err != nil {
			return nil, nil, err
		}
	}

	at = at.UTC()
	var completedAt *time.Time
	if newStatus == domain.TaskStatusCompleted {
		completedAt = &at
	}

	if err := updateStatus(ctx, tx, orgID, taskID, task.Status, newStatus, completedAt, at); err != nil {
		return nil, nil, err
	}

	event := &domain.TaskEvent{
		TaskID:    taskID,
		OrgID:     orgID,
		OldStatus: task.Status,
		NewStatus: newStatus,
		CreatedAt: at,
	}
	if err := createTaskEvent(ctx, tx, event); err != nil {
		return nil, nil, fmt.Errorf("create event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	task.Status = newStatus
	task.CompletedAt = completedAt
	task.UpdatedAt = at

	return task, event, nil
}

// CountOpenByEmployees returns the number of ASSIGNED or IN_PROGRESS tasks per
// employee in one query. Employees without open tasks are present with 0.
func (r *TaskRepository) CountOpenByEmployees(ctx context.Context, orgID string, employeeIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return counts, nil
	}
	for _, id := range employeeIDs {
		counts[id] = 0
	}

	query, args, err := psql.
		Select("employee_id", "COUNT(*)").
		From("tasks").
		Where(sq.Eq{
			"org_id":      orgID,
			"employee_id": employeeIDs,
			"status":      openStatuses,
			"is_deleted":  false,
		}).
		GroupBy("employee_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build CountOpenByEmployees query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count open tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			employeeID string
			count      int
		)
		if err := rows.Scan(&employeeID, &count); err != nil {
			return nil, fmt.Errorf("scan open task count: %w", err)
		}
		counts[employeeID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open task counts: %w", err)
	}

	return counts, nil
}

// RequiredSkillsByJobTitle returns the required-skill lists of live tasks
// assigned to active employees holding the given job title.
func (r *TaskRepository) RequiredSkillsByJobTitle(ctx context.Context, orgID, jobTitle string) ([][]string, error) {
	query, args, err := psql.
		Select("t.required_skills").
		From("tasks t").
		Join("employees e ON e.id = t.employee_id AND e.org_id = t.org_id").
		Where(sq.Eq{
			"t.org_id":     orgID,
			"t.is_deleted": false,
			"e.job_title":  jobTitle,
			"e.is_active":  true,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build RequiredSkillsByJobTitle query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query required skills: %w", err)
	}
	defer rows.Close()

	lists := [][]string{}
	for rows.Next() {
		var skills []string
		if err := rows.Scan(&skills); err != nil {
			return nil, fmt.Errorf("scan required skills: %w", err)
		}
		lists = append(lists, skills)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate required skills: %w", err)
	}

	return lists, nil
}

// Create inserts a task. Used by tests.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.Status == "" {
		task.Status = domain.TaskStatusAssigned
	}
	if task.RequiredSkills == nil {
		task.RequiredSkills = []string{}
	}

	query, args, err := psql.
		Insert("tasks").
		Columns(
			"org_id", "title", "status", "complexity", "due_date",
			"completed_at", "required_skills", "employee_id",
		).
		Values(
			task.OrgID,
			task.Title,
			task.Status,
			task.Complexity,
			task.DueDate,
			task.CompletedAt,
			task.RequiredSkills,
			task.EmployeeID,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}
