package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// ErrSupplierExists is returned by Create when the id is already taken.
var ErrSupplierExists = errors.New("supplier already exists")

const pgUniqueViolation = "23505"

// SupplierRepository manages supplier persistence.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	Update(ctx context.Context, supplier *domain.Supplier) error
	Upsert(ctx context.Context, supplier *domain.Supplier) error
	GetByID(ctx context.Context, id string) (*domain.Supplier, error)
	ListActive(ctx context.Context) ([]domain.Supplier, error)
}

type supplierRepository struct {
	pool *pgxpool.Pool
}

// NewSupplierRepository builds the repository.
func NewSupplierRepository(pool *pgxpool.Pool) SupplierRepository {
	return &supplierRepository{pool: pool}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	const query = `
        INSERT INTO suppliers (id, name, category, sla_hours, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		supplier.ID,
		supplier.Name,
		supplier.Category,
		supplier.SLAHours,
		supplier.Active,
	).Scan(&supplier.CreatedAt, &supplier.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrSupplierExists
	}
	return err
}

func (r *supplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	const query = `
        UPDATE suppliers SET name=$1, category=$2, sla_hours=$3, active=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		supplier.Name,
		supplier.Category,
		supplier.SLAHours,
		supplier.Active,
		supplier.ID,
	).Scan(&supplier.UpdatedAt)
}

func (r *supplierRepository) Upsert(ctx context.Context, supplier *domain.Supplier) error {
	const query = `
        INSERT INTO suppliers (id, name, category, sla_hours, active)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, category=EXCLUDED.category,
            sla_hours=EXCLUDED.sla_hours, active=EXCLUDED.active, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		supplier.ID,
		supplier.Name,
		supplier.Category,
		supplier.SLAHours,
		supplier.Active,
	).Scan(&supplier.CreatedAt, &supplier.UpdatedAt)
}

func (r *supplierRepository) GetByID(ctx context.Context, id string) (*domain.Supplier, error) {
	const query = `
        SELECT id, name, category, sla_hours, active, created_at, updated_at
        FROM suppliers WHERE id=$1`
	var supplier domain.Supplier
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Category,
		&supplier.SLAHours,
		&supplier.Active,
		&supplier.CreatedAt,
		&supplier.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepository) ListActive(ctx context.Context) ([]domain.Supplier, error) {
	const query = `
        SELECT id, name, category, sla_hours, active, created_at, updated_at
        FROM suppliers WHERE active = TRUE ORDER BY name ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Supplier
	for rows.Next() {
		var supplier domain.Supplier
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Category, &supplier.SLAHours,
			&supplier.Active, &supplier.CreatedAt, &supplier.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, supplier)
	}
	return result, rows.Err()
}
