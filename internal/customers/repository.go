package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian/internal/platform/db"
)

var (
	ErrNotFound = errors.New("customers: record not found")
)

// Repository defines data access for customers.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	ReplaceProducts(ctx context.Context, id string, productIDs []string) error
	Delete(ctx context.Context, id string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, name, company, email, phone, whatsapp, address, status, source_id,
	assigned_to, supervisor_id, manager_id, division_id, estimation_value, description,
	created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Customer, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns), id)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	productIDs, err := r.productIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.ProductIDs = productIDs
	return customer, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DivisionID != nil {
		conditions = append(conditions, fmt.Sprintf("division_id = $%d", argPos))
		args = append(args, *req.DivisionID)
		argPos++
	}
	if req.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", argPos))
		args = append(args, *req.AssignedTo)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + *req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR company ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argPos, argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		customerColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *customer)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, customer Customer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO customers (id, name, company, email, phone, whatsapp, address, status, source_id,
			assigned_to, supervisor_id, manager_id, division_id, estimation_value, description,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())`,
		customer.ID, customer.Name, customer.Company, customer.Email, customer.Phone,
		customer.Whatsapp, customer.Address, string(customer.Status), customer.SourceID,
		customer.AssignedTo, customer.SupervisorID, customer.ManagerID, customer.DivisionID,
		customer.EstimationValue, customer.Description, customer.CreatedBy)
	if err != nil {
		return fmt.Errorf("customers: insert: %w", err)
	}
	return r.insertProducts(ctx, customer.ID, customer.ProductIDs)
}

func (r *repository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	query := "UPDATE customers SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, column := range []string{
		"name", "company", "email", "phone", "whatsapp", "address", "status", "source_id",
		"assigned_to", "supervisor_id", "manager_id", "division_id", "estimation_value", "description",
	} {
		if v, ok := updates[column]; ok {
			query += fmt.Sprintf(", %s = $%d", column, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("customers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ReplaceProducts(ctx context.Context, id string, productIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM customer_products WHERE customer_id = $1`, id); err != nil {
		return fmt.Errorf("customers: clear products: %w", err)
	}
	return r.insertProducts(ctx, id, productIDs)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM customer_products WHERE customer_id = $1`, id); err != nil {
		return fmt.Errorf("customers: delete products: %w", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("customers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) insertProducts(ctx context.Context, customerID string, productIDs []string) error {
	for _, productID := range productIDs {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO customer_products (customer_id, product_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, customerID, productID); err != nil {
			return fmt.Errorf("customers: link product: %w", err)
		}
	}
	return nil
}

func (r *repository) productIDs(ctx context.Context, customerID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id FROM customer_products WHERE customer_id = $1`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var company, whatsapp, address, supervisorID, managerID, description pgtype.Text
	var status string
	var estimation pgtype.Float8
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&c.ID, &c.Name, &company, &c.Email, &c.Phone, &whatsapp, &address, &status, &c.SourceID,
		&c.AssignedTo, &supervisorID, &managerID, &c.DivisionID, &estimation, &description,
		&c.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = Status(status)
	if company.Valid {
		c.Company = &company.String
	}
	if whatsapp.Valid {
		c.Whatsapp = &whatsapp.String
	}
	if address.Valid {
		c.Address = &address.String
	}
	if supervisorID.Valid {
		c.SupervisorID = &supervisorID.String
	}
	if managerID.Valid {
		c.ManagerID = &managerID.String
	}
	if description.Valid {
		c.Description = &description.String
	}
	if estimation.Valid {
		c.EstimationValue = estimation.Float64
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}
