package impersonation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindActiveByOwner returns the owner's active grant, or nil when none
// exists. At most one grant per owner is ever active.
func (r *Repository) FindActiveByOwner(ctx context.Context, ownerID string) (*Grant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_user_id, target_user_id, token, created_at, expires_at, active, ended_at
		FROM impersonation_grants
		WHERE owner_user_id = $1 AND active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`, ownerID)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("impersonation: find active: %w", err)
	}
	return grant, nil
}

// Switch ends any active grant owned by the same identity and inserts the
// new grant inside a single transaction, so no resolution can ever observe
// two active grants for one owner.
func (r *Repository) Switch(ctx context.Context, grant Grant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE impersonation_grants
			SET active = FALSE, ended_at = NOW()
			WHERE owner_user_id = $1 AND active = TRUE`, grant.OwnerUserID); err != nil {
			return fmt.Errorf("impersonation: end prior: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO impersonation_grants (id, owner_user_id, target_user_id, token, created_at, expires_at, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
			grant.ID, grant.OwnerUserID, grant.TargetUserID, grant.Token, grant.CreatedAt, grant.ExpiresAt); err != nil {
			return fmt.Errorf("impersonation: create: %w", err)
		}
		return nil
	})
}

// End marks a grant ended. Ending an already-ended grant is a no-op: the
// active -> ended transition is terminal and one-way.
func (r *Repository) End(ctx context.Context, grantID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE impersonation_grants
		SET active = FALSE, ended_at = NOW()
		WHERE id = $1 AND active = TRUE`, grantID)
	if err != nil {
		return fmt.Errorf("impersonation: end: %w", err)
	}
	return nil
}

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	var createdAt, expiresAt pgtype.Timestamptz
	var endedAt pgtype.Timestamptz
	if err := row.Scan(&g.ID, &g.OwnerUserID, &g.TargetUserID, &g.Token, &createdAt, &expiresAt, &g.Active, &endedAt); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		g.CreatedAt = createdAt.Time
	}
	if expiresAt.Valid {
		g.ExpiresAt = expiresAt.Time
	}
	if endedAt.Valid {
		t := endedAt.Time
		g.EndedAt = &t
	}
	return &g, nil
}
