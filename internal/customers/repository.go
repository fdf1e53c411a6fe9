package customers

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
	ErrNotFound = httpx.ErrNotFound
	// ErrHasQuotations blocks deleting a customer that quotations reference.
	ErrHasQuotations = shared.NewSafeError(httpx.ErrConflict, "The customer has quotations and cannot be deleted.")
	// ErrDuplicateCode reports a customer code collision.
	ErrDuplicateCode = errors.New("customer code already exists")
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Options(ctx context.Context) ([]Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	CodeTaken(ctx context.Context, code string, exceptID int64) (bool, error)
	NextCode(ctx context.Context) (string, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id int64) error
	CountQuotations(ctx context.Context, id int64) (int, error)
	Quotations(ctx context.Context, id int64, ownerID *int64, limit int) ([]shared.QuoteSummary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `c.id, c.code, c.name, c.email, c.phone, c.tax_id, c.address_line1, c.address_line2,
c.city, c.state, c.postal_code, c.country, c.account_id, COALESCE(a.name, ''), c.is_active, c.notes,
c.created_by, c.created_at, c.updated_at`

const customerFrom = `FROM customers c LEFT JOIN accounts a ON a.id = c.account_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var where db.Where
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where.Add("(c.code ILIKE ? OR c.name ILIKE ? OR c.email ILIKE ?)", pattern, pattern, pattern)
	}
	if filters.AccountID != nil {
		where.Add("c.account_id = ?", *filters.AccountID)
	}
	if filters.IsActive != nil {
		where.Add("c.is_active = ?", *filters.IsActive)
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+customerFrom+" "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf("SELECT %s %s %s ORDER BY %s LIMIT %s OFFSET %s",
		customerColumns, customerFrom, where.SQL(), sortOrder(filters.SortBy, filters.SortDir), where.Next(1), where.Next(2))
	out, err := r.query(ctx, query, append(where.Args(), filters.Limit(), filters.Offset())...)
	return out, total, err
}

func (r *repository) Options(ctx context.Context) ([]Customer, error) {
	return r.query(ctx, "SELECT "+customerColumns+" "+customerFrom+" WHERE c.is_active ORDER BY c.name")
}

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, "SELECT "+customerColumns+" "+customerFrom+" WHERE c.id = $1", id))
	if db.IsNoRows(err) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *repository) CodeTaken(ctx context.Context, code string, exceptID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE upper(code) = $1 AND id <> $2)`,
		strings.ToUpper(code), exceptID).Scan(&exists)
	return exists, err
}

// NextCode draws the next number from customer_code_seq.
func (r *repository) NextCode(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('customer_code_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return FormatCode(n), nil
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (code, name, email, phone, tax_id, address_line1, address_line2,
city, state, postal_code, country, account_id, is_active, notes, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
RETURNING id, created_at, updated_at`,
		c.Code, c.Name, c.Email, c.Phone, c.TaxID, c.AddressLine1, c.AddressLine2, c.City, c.State, c.PostalCode,
		c.Country, c.AccountID, c.IsActive, c.Notes, c.CreatedBy).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if db.IsUniqueViolation(err, "") {
		return Customer{}, ErrDuplicateCode
	}
	return c, err
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET code = $2, name = $3, email = $4, phone = $5, tax_id = $6,
address_line1 = $7, address_line2 = $8, city = $9, state = $10, postal_code = $11, country = $12, account_id = $13,
is_active = $14, notes = $15, updated_at = NOW() WHERE id = $1`,
		c.ID, c.Code, c.Name, c.Email, c.Phone, c.TaxID, c.AddressLine1, c.AddressLine2, c.City, c.State,
		c.PostalCode, c.Country, c.AccountID, c.IsActive, c.Notes)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateCode
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrHasQuotations
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountQuotations(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations WHERE customer_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) Quotations(ctx context.Context, id int64, ownerID *int64, limit int) ([]shared.QuoteSummary, error) {
	var where db.Where
	where.Add("q.customer_id = ?", id)
	if ownerID != nil {
		where.Add("q.created_by = ?", *ownerID)
	}
	query := fmt.Sprintf(`SELECT q.id, q.reference, q.title, c.name, q.status, q.version, q.grand_total, q.currency, q.quote_date
FROM quotations q JOIN customers c ON c.id = q.customer_id %s ORDER BY q.quote_date DESC, q.id DESC LIMIT %s`,
		where.SQL(), where.Next(1))
	rows, err := r.pool.Query(ctx, query, append(where.Args(), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.QuoteSummary
	for rows.Next() {
		var q shared.QuoteSummary
		if err := rows.Scan(&q.ID, &q.Reference, &q.Title, &q.CustomerName, &q.Status, &q.Version, &q.GrandTotal, &q.Currency, &q.QuoteDate); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.TaxID, &c.AddressLine1, &c.AddressLine2,
		&c.City, &c.State, &c.PostalCode, &c.Country, &c.AccountID, &c.AccountName, &c.IsActive, &c.Notes,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func sortOrder(sortBy, dir string) string {
	column := "c.name"
	switch sortBy {
	case "code":
		column = "c.code"
	case "account":
		column = "a.name"
	case "created_at":
		column = "c.created_at"
	}
	return column + " " + shared.SortDirection(dir)
}
