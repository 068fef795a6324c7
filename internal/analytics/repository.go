package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope narrows the aggregates the same way the customer list is filtered:
// marketing down to their own assignments, supervisors and managers down to
// their division.
type Scope struct {
	DivisionID *string
	AssignedTo *string
}

// Token renders the scope into a cache key fragment.
func (s Scope) Token() string {
	div, assigned := "-", "-"
	if s.DivisionID != nil {
		div = *s.DivisionID
	}
	if s.AssignedTo != nil {
		assigned = *s.AssignedTo
	}
	return div + ":" + assigned
}

// MonthBucket aggregates customer acquisition for one calendar month.
type MonthBucket struct {
	Month         string  `json:"month"`
	Customers     int     `json:"customers"`
	PipelineValue float64 `json:"pipeline_value"`
}

// LabelCount is a generic grouping row.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Repository runs the aggregate queries the dashboard and analytics views
// are built from.
type Repository interface {
	StatusBreakdown(ctx context.Context, scope Scope) (map[string]int, error)
	PipelineValue(ctx context.Context, scope Scope) (float64, error)
	FollowupCounts(ctx context.Context, scope Scope, now time.Time) (today int, overdue int, err error)
	NewCustomersSince(ctx context.Context, scope Scope, since time.Time) (int, error)
	MonthlyAcquisition(ctx context.Context, scope Scope, from time.Time) ([]MonthBucket, error)
	CustomersBySource(ctx context.Context, scope Scope) ([]LabelCount, error)
	InteractionsByType(ctx context.Context, scope Scope) ([]LabelCount, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) StatusBreakdown(ctx context.Context, scope Scope) (map[string]int, error) {
	where, args := scopeClause(scope, 0)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT status, COUNT(*) FROM customers %s GROUP BY status`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		breakdown[status] = count
	}
	return breakdown, rows.Err()
}

func (r *repository) PipelineValue(ctx context.Context, scope Scope) (float64, error) {
	where, args := scopeClause(scope, 0)
	var value float64
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COALESCE(SUM(estimation_value), 0) FROM customers %s`, where), args...).Scan(&value)
	return value, err
}

func (r *repository) FollowupCounts(ctx context.Context, scope Scope, now time.Time) (int, int, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	where, args := interactionScopeClause(scope, 2)
	var today int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM interactions i
		WHERE i.status = 'pending' AND i.due_at >= $1 AND i.due_at < $2%s`, where),
		append([]interface{}{dayStart, dayEnd}, args...)...).Scan(&today)
	if err != nil {
		return 0, 0, err
	}

	where, args = interactionScopeClause(scope, 0)
	var overdue int
	err = r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM interactions i
		WHERE i.status = 'overdue'%s`, where), args...).Scan(&overdue)
	return today, overdue, err
}

func (r *repository) NewCustomersSince(ctx context.Context, scope Scope, since time.Time) (int, error) {
	where, args := scopeClause(scope, 1)
	if where == "" {
		where = "WHERE created_at >= $1"
	} else {
		where += " AND created_at >= $1"
	}
	var count int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM customers %s`, where),
		append([]interface{}{since}, args...)...).Scan(&count)
	return count, err
}

func (r *repository) MonthlyAcquisition(ctx context.Context, scope Scope, from time.Time) ([]MonthBucket, error) {
	where, args := scopeClause(scope, 1)
	if where == "" {
		where = "WHERE created_at >= $1"
	} else {
		where += " AND created_at >= $1"
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT TO_CHAR(DATE_TRUNC('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*), COALESCE(SUM(estimation_value), 0)
		FROM customers %s
		GROUP BY month ORDER BY month`, where),
		append([]interface{}{from}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []MonthBucket
	for rows.Next() {
		var b MonthBucket
		if err := rows.Scan(&b.Month, &b.Customers, &b.PipelineValue); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *repository) CustomersBySource(ctx context.Context, scope Scope) ([]LabelCount, error) {
	where, args := scopeClause(scope, 0)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT s.name, COUNT(*) FROM customers c
		JOIN sources s ON s.id = c.source_id
		%s GROUP BY s.name ORDER BY COUNT(*) DESC`, qualifyScope(where)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLabelCounts(rows)
}

func (r *repository) InteractionsByType(ctx context.Context, scope Scope) ([]LabelCount, error) {
	where, args := interactionScopeClause(scope, 0)
	query := fmt.Sprintf(`SELECT i.type, COUNT(*) FROM interactions i WHERE 1=1%s GROUP BY i.type ORDER BY COUNT(*) DESC`, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLabelCounts(rows)
}

// scopeClause builds a WHERE clause over the customers table. offset shifts
// placeholder numbering when the caller prepends its own arguments.
func scopeClause(scope Scope, offset int) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	n := offset
	if scope.DivisionID != nil {
		n++
		clauses = append(clauses, fmt.Sprintf("division_id = $%d", n))
		args = append(args, *scope.DivisionID)
	}
	if scope.AssignedTo != nil {
		n++
		clauses = append(clauses, fmt.Sprintf("assigned_to = $%d", n))
		args = append(args, *scope.AssignedTo)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := "WHERE " + clauses[0]
	for i := 1; i < len(clauses); i++ {
		where += " AND " + clauses[i]
	}
	return where, args
}

// interactionScopeClause scopes interaction queries through the owning
// customer row. Always returns an AND-prefixed fragment.
func interactionScopeClause(scope Scope, offset int) (string, []interface{}) {
	var fragment string
	var args []interface{}
	n := offset
	if scope.DivisionID != nil {
		n++
		fragment += fmt.Sprintf(" AND i.customer_id IN (SELECT id FROM customers WHERE division_id = $%d)", n)
		args = append(args, *scope.DivisionID)
	}
	if scope.AssignedTo != nil {
		n++
		fragment += fmt.Sprintf(" AND i.user_id = $%d", n)
		args = append(args, *scope.AssignedTo)
	}
	return fragment, args
}

// qualifyScope rewrites a bare customers WHERE clause for the aliased join
// queries.
func qualifyScope(where string) string {
	if where == "" {
		return ""
	}
	where = strings.ReplaceAll(where, "division_id", "c.division_id")
	where = strings.ReplaceAll(where, "assigned_to", "c.assigned_to")
	return where
}

func scanLabelCounts(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]LabelCount, error) {
	var out []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}
