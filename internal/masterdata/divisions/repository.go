package divisions

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Division, int, error)
	Get(ctx context.Context, id string) (Division, error)
	Create(ctx context.Context, division Division) error
	Update(ctx context.Context, id string, division Division) error
	Delete(ctx context.Context, id string) error
	CountCustomerRefs(ctx context.Context, id string) (int, error)
	CountUserRefs(ctx context.Context, id string) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Division, int, error) {
	query := `SELECT id, name, description, created_at FROM divisions WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM divisions WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND name ILIKE $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argCount++
	query += ` ORDER BY name ASC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var divisions []Division
	for rows.Next() {
		d, err := scanDivision(rows)
		if err != nil {
			return nil, 0, err
		}
		divisions = append(divisions, d)
	}
	return divisions, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Division, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM divisions WHERE id = $1`, id)
	d, err := scanDivision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Division{}, shared.ErrNotFound
		}
		return Division{}, err
	}
	return d, nil
}

func (r *repository) Create(ctx context.Context, division Division) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO divisions (id, name, description, created_at)
		VALUES ($1, $2, $3, NOW())`,
		division.ID, division.Name, division.Description)
	return err
}

func (r *repository) Update(ctx context.Context, id string, division Division) error {
	tag, err := r.pool.Exec(ctx, `UPDATE divisions SET name = $1, description = $2 WHERE id = $3`,
		division.Name, division.Description, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM divisions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CountCustomerRefs(ctx context.Context, id string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE division_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) CountUserRefs(ctx context.Context, id string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE division_id = $1`, id).Scan(&n)
	return n, err
}

func scanDivision(row pgx.Row) (Division, error) {
	var d Division
	var description pgtype.Text
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&d.ID, &d.Name, &description, &createdAt); err != nil {
		return Division{}, err
	}
	if description.Valid {
		d.Description = &description.String
	}
	if createdAt.Valid {
		d.CreatedAt = createdAt.Time
	}
	return d, nil
}
