package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/hrscore/internal/domain"
)

// scoreLogColumns selects score as float8 so it scans into *float64.
var scoreLogColumns = []string{
	"id", "employee_id", "org_id", "score::float8", "breakdown", "computed_at",
}

// ScoreLogRepository reads and appends score history. It has no update or
// delete operations; the table rejects both.
type ScoreLogRepository struct {
	pool *pgxpool.Pool
}

// NewScoreLogRepository creates a new ScoreLogRepository.
func NewScoreLogRepository(pool *pgxpool.Pool) *ScoreLogRepository {
	return &ScoreLogRepository{pool: pool}
}

func scanScoreLog(row pgx.Row) (*domain.ScoreLogEntry, error) {
	var (
		entry domain.ScoreLogEntry
		raw   []byte
	)
	if err := row.Scan(
		&entry.ID,
		&entry.EmployeeID,
		&entry.OrgID,
		&entry.Score,
		&raw,
		&entry.ComputedAt,
	); err != nil {
		return nil, fmt.Errorf("scan score log: %w", err)
	}

	entry.Breakdown = domain.DecodeBreakdown(raw)
	if entry.Breakdown == nil && len(raw) > 0 && string(raw) != "null" {
		slog.Warn("score log breakdown ignored",
			"error", domain.ErrMalformedHistory,
			"entry_id", entry.ID,
			"employee_id", entry.EmployeeID,
		)
	}

	return &entry, nil
}

func scanScoreLogs(rows pgx.Rows) ([]*domain.ScoreLogEntry, error) {
	defer rows.Close()

	entries := []*domain.ScoreLogEntry{}
	for rows.Next() {
		entry, err := scanScoreLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Insert appends an entry and fills its ID. ComputedAt defaults to NOW() when zero.
func (r *ScoreLogRepository) Insert(ctx context.Context, entry *domain.ScoreLogEntry) error {
	breakdown, err := domain.EncodeBreakdown(entry.Breakdown)
	if err != nil {
		return err
	}

	// jsonb NULL, not the JSON literal null
	var breakdownArg any
	if breakdown != nil {
		breakdownArg = string(breakdown)
	}

	qb := psql.
		Insert("score_logs").
		Columns("employee_id", "org_id", "score", "breakdown")
	values := []any{entry.EmployeeID, entry.OrgID, entry.Score, breakdownArg}
	if !entry.ComputedAt.IsZero() {
		qb = qb.Columns("computed_at")
		values = append(values, entry.ComputedAt.UTC())
	}

	query, args, err := qb.
		Values(values...).
		Suffix("RETURNING id, computed_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.ComputedAt); err != nil {
		return fmt.Errorf("insert score log: %w", err)
	}

	return nil
}

// QueryRange returns an employee's entries computed at or after since, oldest first.
func (r *ScoreLogRepository) QueryRange(ctx context.Context, orgID, employeeID string, since time.Time) ([]*domain.ScoreLogEntry, error) {
	query, args, err := psql.
		Select(scoreLogColumns...).
		From("score_logs").
		Where(sq.Eq{"org_id": orgID, "employee_id": employeeID}).
		Where(sq.GtOrEq{"computed_at": since.UTC()}).
		OrderBy("computed_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build range query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query score logs: %w", err)
	}

	return scanScoreLogs(rows)
}

// LatestPerEmployee returns the current entry of each listed employee, keyed
// by employee ID. Employees with no history are absent from the map.
func (r *ScoreLogRepository) LatestPerEmployee(ctx context.Context, orgID string, employeeIDs []string) (map[string]*domain.ScoreLogEntry, error) {
	latest := make(map[string]*domain.ScoreLogEntry, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return latest, nil
	}

	query, args, err := psql.
		Select(scoreLogColumns...).
		Options("DISTINCT ON (employee_id)").
		From("score_logs").
		Where(sq.Eq{"org_id": orgID, "employee_id": employeeIDs}).
		OrderBy("employee_id", "computed_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest score logs: %w", err)
	}

	entries, err := scanScoreLogs(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		latest[e.EmployeeID] = e
	}

	return latest, nil
}
