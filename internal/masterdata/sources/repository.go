package sources

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
	List(ctx context.Context, filters shared.ListFilters) ([]Source, int, error)
	Get(ctx context.Context, id string) (Source, error)
	Create(ctx context.Context, source Source) error
	Update(ctx context.Context, id string, source Source) error
	Delete(ctx context.Context, id string) error
	CountCustomerRefs(ctx context.Context, id string) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Source, int, error) {
	query := `SELECT id, name, created_at FROM sources WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sources WHERE 1=1`
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

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, 0, err
		}
		sources = append(sources, s)
	}
	return sources, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Source, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM sources WHERE id = $1`, id)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Source{}, shared.ErrNotFound
		}
		return Source{}, err
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, source Source) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sources (id, name, created_at) VALUES ($1, $2, NOW())`,
		source.ID, source.Name)
	return err
}

func (r *repository) Update(ctx context.Context, id string, source Source) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sources SET name = $1 WHERE id = $2`, source.Name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE source_id = $1`, id).Scan(&n)
	return n, err
}

func scanSource(row pgx.Row) (Source, error) {
	var s Source
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&s.ID, &s.Name, &createdAt); err != nil {
		return Source{}, err
	}
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	return s, nil
}
