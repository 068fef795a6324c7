package interactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("interactions: record not found")

// Repository defines data access for interactions.
type Repository interface {
	Get(ctx context.Context, id string) (*Interaction, error)
	List(ctx context.Context, req ListInteractionsRequest) ([]Interaction, int, error)
	Create(ctx context.Context, interaction Interaction) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Complete(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	PromoteOverdue(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const interactionColumns = `id, customer_id, user_id, type, notes, due_at, status, completed_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Interaction, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM interactions WHERE id = $1`, interactionColumns), id)
	interaction, err := scanInteraction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return interaction, nil
}

func (r *repository) List(ctx context.Context, req ListInteractionsRequest) ([]Interaction, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *req.UserID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM interactions %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM interactions %s ORDER BY due_at DESC LIMIT $%d OFFSET $%d`,
		interactionColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *interaction)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, interaction Interaction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO interactions (id, customer_id, user_id, type, notes, due_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		interaction.ID, interaction.CustomerID, interaction.UserID, string(interaction.Type),
		interaction.Notes, interaction.DueAt, string(interaction.Status))
	if err != nil {
		return fmt.Errorf("interactions: insert: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	query := "UPDATE interactions SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, column := range []string{"type", "notes", "due_at", "status"} {
		if v, ok := updates[column]; ok {
			query += fmt.Sprintf(", %s = $%d", column, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("interactions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Complete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE interactions SET status = $1, completed_at = $2, updated_at = NOW()
		WHERE id = $3`, string(StatusDone), at, id)
	if err != nil {
		return fmt.Errorf("interactions: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM interactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("interactions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PromoteOverdue flips pending interactions whose due date has passed to
// overdue. Called from the background scan.
func (r *repository) PromoteOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE interactions SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_at < $3`, string(StatusOverdue), string(StatusPending), now)
	if err != nil {
		return 0, fmt.Errorf("interactions: promote overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanInteraction(row pgx.Row) (*Interaction, error) {
	var in Interaction
	var typ, status string
	var notes pgtype.Text
	var dueAt, createdAt, updatedAt, completedAt pgtype.Timestamptz

	err := row.Scan(&in.ID, &in.CustomerID, &in.UserID, &typ, &notes, &dueAt, &status, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	in.Type = Type(typ)
	in.Status = Status(status)
	if notes.Valid {
		in.Notes = &notes.String
	}
	if dueAt.Valid {
		in.DueAt = dueAt.Time
	}
	if completedAt.Valid {
		t := completedAt.Time
		in.CompletedAt = &t
	}
	if createdAt.Valid {
		in.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		in.UpdatedAt = updatedAt.Time
	}
	return &in, nil
}
