package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CustomerRepository handles persistence for end customers.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByKey(ctx context.Context, key string) (*domain.Customer, error)
	// MaxKeySuffix returns the largest trailing numeric segment among
	// customer keys sharing the given prefix.
	MaxKeySuffix(ctx context.Context, prefix string) (int64, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates the repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, customer_key, name, email, category, product_model, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (customer_key, name, email, category, product_model)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.CustomerKey,
		customer.Name,
		customer.Email,
		customer.Category,
		customer.ProductModel,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	const query = `
        UPDATE customers SET name=$1, email=$2, category=$3, product_model=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		customer.Name,
		customer.Email,
		customer.Category,
		customer.ProductModel,
		customer.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *customerRepository) GetByKey(ctx context.Context, key string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE customer_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.CustomerKey,
		&customer.Name,
		&customer.Email,
		&customer.Category,
		&customer.ProductModel,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) MaxKeySuffix(ctx context.Context, prefix string) (int64, error) {
	const query = `
        SELECT COALESCE(MAX(substring(customer_key FROM '([0-9]+)$')::bigint), 0)
        FROM customers
        WHERE customer_key LIKE $1 || '%'`
	var max int64
	if err := r.pool.QueryRow(ctx, query, prefix).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}
