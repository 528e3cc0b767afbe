package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/hrscore/internal/domain"
)

var employeeColumns = []string{
	"id", "org_id", "name", "skills", "job_title", "department", "is_active", "created_at",
}

// EmployeeRepository handles database operations for employees.
type EmployeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func scanEmployee(row pgx.Row) (*domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(
		&e.ID,
		&e.OrgID,
		&e.Name,
		&e.Skills,
		&e.JobTitle,
		&e.Department,
		&e.IsActive,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}
	if e.Skills == nil {
		e.Skills = []string{}
	}
	return &e, nil
}

// GetByID retrieves an employee by ID within the organization.
func (r *EmployeeRepository) GetByID(ctx context.Context, orgID, employeeID string) (*domain.Employee, error) {
	query, args, err := psql.
		Select(employeeColumns...).
		From("employees").
		Where(sq.Eq{"id": employeeID, "org_id": orgID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return scanEmployee(r.pool.QueryRow(ctx, query, args...))
}

// ListActive returns active employees of the organization ordered by name.
// A non-nil department narrows the list to that department.
func (r *EmployeeRepository) ListActive(ctx context.Context, orgID string, department *string) ([]*domain.Employee, error) {
	qb := psql.
		Select(employeeColumns...).
		From("employees").
		Where(sq.Eq{"org_id": orgID, "is_active": true})
	if department != nil {
		qb = qb.Where(sq.Eq{"department": *department})
	}

	query, args, err := qb.OrderBy("name ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	employees := []*domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return employees, nil
}

// Create inserts an employee. Used by tests.
func (r *EmployeeRepository) Create(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	if e.Skills == nil {
		e.Skills = []string{}
	}

	query, args, err := psql.
		Insert("employees").
		Columns("org_id", "name", "skills", "job_title", "department", "is_active").
		Values(e.OrgID, e.Name, e.Skills, e.JobTitle, e.Department, e.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	return e, nil
}
