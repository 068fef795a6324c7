package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian/internal/platform/db"
	"github.com/meridian-crm/meridian/internal/roles"
)

// ErrNotFound indicates that the requested profile does not exist.
var ErrNotFound = errors.New("profiles: not found")

// Account carries the credential half of a provisioned user.
type Account struct {
	Email        string
	PasswordHash string
}

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the profile for an identity, with the division display name
// resolved. The role is intentionally not attached here: role assignment is
// a distinct record, looked up by the caller.
func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT p.user_id, p.display_name, p.email, p.division_id, d.name, p.created_at
		FROM profiles p
		LEFT JOIN divisions d ON d.id = p.division_id
		WHERE p.user_id = $1`, userID)

	var p Profile
	var divisionID, divisionName pgtype.Text
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&p.UserID, &p.DisplayName, &p.Email, &divisionID, &divisionName, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("profiles: get: %w", err)
	}
	if divisionID.Valid {
		p.DivisionID = &divisionID.String
	}
	if divisionName.Valid {
		p.DivisionName = &divisionName.String
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return &p, nil
}

// List returns all profiles except the given identity, newest first, with
// division names and role assignments joined in. Role values outside the
// closed set are treated as unassigned.
func (r *Repository) List(ctx context.Context, excludeUserID string) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, p.display_name, p.email, p.division_id, d.name, ur.role, p.created_at
		FROM profiles p
		LEFT JOIN divisions d ON d.id = p.division_id
		LEFT JOIN user_roles ur ON ur.user_id = p.user_id
		WHERE p.user_id <> $1
		ORDER BY p.created_at DESC`, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("profiles: list: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		var divisionID, divisionName, rawRole pgtype.Text
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Email, &divisionID, &divisionName, &rawRole, &createdAt); err != nil {
			return nil, fmt.Errorf("profiles: list scan: %w", err)
		}
		if divisionID.Valid {
			p.DivisionID = &divisionID.String
		}
		if divisionName.Valid {
			p.DivisionName = &divisionName.String
		}
		if rawRole.Valid {
			if role, err := roles.ParseRole(rawRole.String); err == nil {
				p.Role = &role
			}
		}
		if createdAt.Valid {
			p.CreatedAt = createdAt.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateWithAccount provisions the credential record, the profile and the
// role assignment in one transaction.
func (r *Repository) CreateWithAccount(ctx context.Context, userID string, acct Account, displayName string, divisionID *string, role roles.Role, assignedBy string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, NOW(), NOW())`, userID, acct.Email, acct.PasswordHash); err != nil {
			return fmt.Errorf("profiles: insert user: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (user_id, display_name, email, division_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())`, userID, displayName, acct.Email, divisionID); err != nil {
			return fmt.Errorf("profiles: insert profile: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role, assigned_by, assigned_at)
			VALUES ($1, $2, $3, NOW())`, userID, string(role), assignedBy); err != nil {
			return fmt.Errorf("profiles: insert role: %w", err)
		}
		return nil
	})
}

// Update adjusts display name and division on a profile.
func (r *Repository) Update(ctx context.Context, userID string, displayName *string, divisionID *string, clearDivision bool) error {
	query := `UPDATE profiles SET updated_at = NOW()`
	args := []any{}
	argPos := 1
	if displayName != nil {
		query += fmt.Sprintf(", display_name = $%d", argPos)
		args = append(args, *displayName)
		argPos++
	}
	if clearDivision {
		query += ", division_id = NULL"
	} else if divisionID != nil {
		query += fmt.Sprintf(", division_id = $%d", argPos)
		args = append(args, *divisionID)
		argPos++
	}
	query += fmt.Sprintf(" WHERE user_id = $%d", argPos)
	args = append(args, userID)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("profiles: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCustomerRefs counts customers still referencing the user as
// assignee, creator, supervisor or manager. Deletion must be refused while
// this is non-zero.
func (r *Repository) CountCustomerRefs(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM customers
		WHERE assigned_to = $1 OR created_by = $1 OR supervisor_id = $1 OR manager_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("profiles: count customer refs: %w", err)
	}
	return count, nil
}

// Delete removes the role assignment, profile and credential record in one
// transaction.
func (r *Repository) Delete(ctx context.Context, userID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("profiles: delete role: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("profiles: delete profile: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("profiles: delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
