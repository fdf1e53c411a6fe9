package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

var (
	// ErrNotFound is returned for unknown products.
	ErrNotFound = httpx.ErrNotFound
	// ErrDuplicateSKU reports a SKU collision.
	ErrDuplicateSKU = errors.New("sku already exists")
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Active(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	SKUTaken(ctx context.Context, sku string, exceptID int64) (bool, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) error
	UsedInQuotations(ctx context.Context, id int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `p.id, p.sku, p.name, p.description, p.category_id, c.name, p.unit,
p.unit_price, p.tax_rate, p.is_active, p.created_at, p.updated_at`

const productFrom = `FROM products p JOIN categories c ON c.id = p.category_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var where db.Where
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where.Add("(p.sku ILIKE ? OR p.name ILIKE ?)", pattern, pattern)
	}
	if filters.CategoryID != nil {
		where.Add("p.category_id = ?", *filters.CategoryID)
	}
	if filters.IsActive != nil {
		where.Add("p.is_active = ?", *filters.IsActive)
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+productFrom+" "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf("SELECT %s %s %s ORDER BY %s LIMIT %s OFFSET %s",
		productColumns, productFrom, where.SQL(), sortOrder(filters.SortBy, filters.SortDir), where.Next(1), where.Next(2))
	out, err := r.query(ctx, query, append(where.Args(), filters.Limit(), filters.Offset())...)
	return out, total, err
}

func (r *repository) Active(ctx context.Context) ([]Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" "+productFrom+" WHERE p.is_active ORDER BY p.name")
}

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, "SELECT "+productColumns+" "+productFrom+" WHERE p.id = $1", id))
	if db.IsNoRows(err) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repository) SKUTaken(ctx context.Context, sku string, exceptID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE upper(sku) = $1 AND id <> $2)`,
		strings.ToUpper(sku), exceptID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, description, category_id, unit, unit_price, tax_rate, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.Description, p.CategoryID, p.Unit, p.UnitPrice, p.TaxRate, p.IsActive).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err, "") {
		return Product{}, ErrDuplicateSKU
	}
	return p, err
}

func (r *repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET sku = $2, name = $3, description = $4, category_id = $5,
unit = $6, unit_price = $7, tax_rate = $8, is_active = $9, updated_at = NOW() WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.Description, p.CategoryID, p.Unit, p.UnitPrice, p.TaxRate, p.IsActive)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateSKU
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UsedInQuotations(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quotation_items WHERE product_id = $1)`, id).Scan(&used)
	return used, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName, &p.Unit,
		&p.UnitPrice, &p.TaxRate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func sortOrder(sortBy, dir string) string {
	column := "p.name"
	switch sortBy {
	case "sku":
		column = "p.sku"
	case "price":
		column = "p.unit_price"
	case "category":
		column = "c.name"
	case "created_at":
		column = "p.created_at"
	}
	return column + " " + shared.SortDirection(dir)
}
