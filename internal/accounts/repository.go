package accounts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

var (
	ErrNotFound = httpx.ErrNotFound
	// ErrHasQuotations blocks deleting an account that quotations reference.
	ErrHasQuotations = shared.NewSafeError(httpx.ErrConflict, "The account has quotations and cannot be deleted.")
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Account, int, error)
	Options(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) error
	Delete(ctx context.Context, id int64) error
	CountQuotations(ctx context.Context, id int64) (int, error)
	Customers(ctx context.Context, id int64) ([]LinkedCustomer, error)
	Quotations(ctx context.Context, id int64, ownerID *int64, limit int) ([]shared.QuoteSummary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `a.id, a.name, a.industry, a.website, a.phone, a.email, a.billing_street, a.billing_city,
a.billing_state, a.billing_postal_code, a.billing_country, a.status, a.owner_id, COALESCE(u.name, ''), a.notes,
a.created_at, a.updated_at`

const accountFrom = `FROM accounts a LEFT JOIN users u ON u.id = a.owner_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Account, int, error) {
	var where db.Where
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where.Add("(a.name ILIKE ? OR a.email ILIKE ? OR a.industry ILIKE ?)", pattern, pattern, pattern)
	}
	if filters.Status != "" {
		where.Add("a.status = ?", filters.Status)
	}
	if filters.OwnerID != nil {
		where.Add("a.owner_id = ?", *filters.OwnerID)
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+accountFrom+" "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf("SELECT %s %s %s ORDER BY %s LIMIT %s OFFSET %s",
		accountColumns, accountFrom, where.SQL(), sortOrder(filters.SortBy, filters.SortDir), where.Next(1), where.Next(2))
	out, err := r.query(ctx, query, append(where.Args(), filters.Limit(), filters.Offset())...)
	return out, total, err
}

func (r *repository) Options(ctx context.Context) ([]Account, error) {
	return r.query(ctx, "SELECT "+accountColumns+" "+accountFrom+" WHERE a.status <> 'inactive' ORDER BY a.name")
}

func (r *repository) query(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, "SELECT "+accountColumns+" "+accountFrom+" WHERE a.id = $1", id))
	if db.IsNoRows(err) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *repository) Create(ctx context.Context, a Account) (Account, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO accounts (name, industry, website, phone, email, billing_street, billing_city,
billing_state, billing_postal_code, billing_country, status, owner_id, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
RETURNING id, created_at, updated_at`,
		a.Name, a.Industry, a.Website, a.Phone, a.Email, a.BillingStreet, a.BillingCity, a.BillingState,
		a.BillingPostalCode, a.BillingCountry, a.Status, a.OwnerID, a.Notes).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Update(ctx context.Context, a Account) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET name = $2, industry = $3, website = $4, phone = $5, email = $6,
billing_street = $7, billing_city = $8, billing_state = $9, billing_postal_code = $10, billing_country = $11,
status = $12, notes = $13, updated_at = NOW() WHERE id = $1`,
		a.ID, a.Name, a.Industry, a.Website, a.Phone, a.Email, a.BillingStreet, a.BillingCity, a.BillingState,
		a.BillingPostalCode, a.BillingCountry, a.Status, a.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations WHERE account_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) Customers(ctx context.Context, id int64) ([]LinkedCustomer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM customers WHERE account_id = $1 ORDER BY name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LinkedCustomer
	for rows.Next() {
		var c LinkedCustomer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Quotations(ctx context.Context, id int64, ownerID *int64, limit int) ([]shared.QuoteSummary, error) {
	var where db.Where
	where.Add("q.account_id = ?", id)
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

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Industry, &a.Website, &a.Phone, &a.Email, &a.BillingStreet, &a.BillingCity,
		&a.BillingState, &a.BillingPostalCode, &a.BillingCountry, &a.Status, &a.OwnerID, &a.OwnerName, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func sortOrder(sortBy, dir string) string {
	column := "a.name"
	switch sortBy {
	case "status":
		column = "a.status"
	case "industry":
		column = "a.industry"
	case "created_at":
		column = "a.created_at"
	}
	return column + " " + shared.SortDirection(dir)
}
