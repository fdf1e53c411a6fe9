package categories

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
	// ErrNotFound is returned for unknown categories.
	ErrNotFound = httpx.ErrNotFound
	// ErrInUse blocks deleting a category that still has products.
	ErrInUse = shared.NewSafeError(httpx.ErrConflict, "The category still has products and cannot be deleted.")
	// ErrDuplicateName reports a name collision.
	ErrDuplicateName = errors.New("category name already exists")
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error)
	All(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	NameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, c Category) error
	CountProducts(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const listColumns = `c.id, c.name, c.description, c.created_at, c.updated_at,
(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	var where db.Where
	if filters.Search != "" {
		where.Add("c.name ILIKE ?", "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM categories c "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf("SELECT %s FROM categories c %s ORDER BY %s LIMIT %s OFFSET %s",
		listColumns, where.SQL(), sortOrder(filters.SortBy, filters.SortDir), where.Next(1), where.Next(2))
	cats, err := r.query(ctx, query, append(where.Args(), filters.Limit(), filters.Offset())...)
	return cats, total, err
}

func (r *repository) All(ctx context.Context) ([]Category, error) {
	return r.query(ctx, "SELECT "+listColumns+" FROM categories c ORDER BY c.name")
}

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Category, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.ProductCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, "SELECT "+listColumns+" FROM categories c WHERE c.id = $1", id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.ProductCount)
	if db.IsNoRows(err) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *repository) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE lower(name) = $1 AND id <> $2)`,
		strings.ToLower(name), exceptID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, description, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW()) RETURNING id, created_at, updated_at`, c.Name, c.Description).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if db.IsUniqueViolation(err, "") {
		return Category{}, ErrDuplicateName
	}
	return c, err
}

func (r *repository) Update(ctx context.Context, c Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		c.ID, c.Name, c.Description)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateName
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountProducts(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, dir string) string {
	column := "c.name"
	switch sortBy {
	case "created_at":
		column = "c.created_at"
	case "products":
		column = "6"
	}
	return column + " " + shared.SortDirection(dir)
}
