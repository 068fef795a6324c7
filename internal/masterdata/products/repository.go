package products

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
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, product Product) error
	Update(ctx context.Context, id string, product Product) error
	Delete(ctx context.Context, id string) error
	CountCustomerRefs(ctx context.Context, id string) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	query := `SELECT id, name, description, price, stock, created_at FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
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

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description, price, stock, created_at FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		product.ID, product.Name, product.Description, product.Price, product.Stock)
	return err
}

func (r *repository) Update(ctx context.Context, id string, product Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET name = $1, description = $2, price = $3, stock = $4 WHERE id = $5`,
		product.Name, product.Description, product.Price, product.Stock, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customer_products WHERE product_id = $1`, id).Scan(&n)
	return n, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var description pgtype.Text
	var price pgtype.Float8
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&p.ID, &p.Name, &description, &price, &p.Stock, &createdAt); err != nil {
		return Product{}, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if price.Valid {
		p.Price = price.Float64
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return p, nil
}
