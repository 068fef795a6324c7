package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to role assignments. Role
// assignment is a distinct record from the profile, mirroring the
// user_roles table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the role assigned to a user, or nil when no assignment
// exists. A stored value outside the closed set is reported as an error.
func (r *Repository) Get(ctx context.Context, userID string) (*Role, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("roles: get: %w", err)
	}
	role, err := ParseRole(raw)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// Set assigns a role to a user, replacing any previous assignment.
func (r *Repository) Set(ctx context.Context, userID string, role Role, assignedBy string) error {
	if !role.Valid() {
		return fmt.Errorf("roles: unknown role %q", role)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role, assigned_by, assigned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, assigned_by = EXCLUDED.assigned_by, assigned_at = NOW()`,
		userID, string(role), assignedBy)
	if err != nil {
		return fmt.Errorf("roles: set: %w", err)
	}
	return nil
}
