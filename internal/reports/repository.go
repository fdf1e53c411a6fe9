package reports

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/quotedesk/quotedesk/internal/platform/db"
)

// Repository runs the aggregate queries behind a sales report.
type Repository interface {
	ByMonth(ctx context.Context, f Filter) ([]MonthTotal, error)
	ByStatus(ctx context.Context, f Filter) ([]StatusTotal, error)
	ByUser(ctx context.Context, f Filter) ([]UserTotal, error)
	TopProducts(ctx context.Context, f Filter, limit int) ([]ProductTotal, error)
	Approved(ctx context.Context, f Filter) ([]ApprovedQuote, error)
	SalesUsers(ctx context.Context) ([]SalesUser, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func scope(f Filter, approvedOnly bool) db.Where {
	var where db.Where
	if approvedOnly {
		where.Add("q.status = 'approved'")
	}
	if !f.From.IsZero() {
		where.Add("q.quote_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		where.Add("q.quote_date <= ?", f.To)
	}
	if f.UserID != nil {
		where.Add("q.created_by = ?", *f.UserID)
	}
	return where
}

func (r *repository) ByMonth(ctx context.Context, f Filter) ([]MonthTotal, error) {
	where := scope(f, true)
	rows, err := r.db.Query(ctx, `SELECT to_char(date_trunc('month', q.quote_date), 'YYYY-MM'), COUNT(*), COALESCE(SUM(q.grand_total), 0)
FROM quotations q `+where.SQL()+` GROUP BY 1 ORDER BY 1`, where.Args()...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthTotal, error) {
		var m MonthTotal
		err := row.Scan(&m.Month, &m.Count, &m.Total)
		return m, err
	})
}

func (r *repository) ByStatus(ctx context.Context, f Filter) ([]StatusTotal, error) {
	where := scope(f, false)
	rows, err := r.db.Query(ctx, `SELECT q.status, COUNT(*), COALESCE(SUM(q.grand_total), 0)
FROM quotations q `+where.SQL()+` GROUP BY q.status`, where.Args()...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusTotal, error) {
		var s StatusTotal
		err := row.Scan(&s.Status, &s.Count, &s.Total)
		return s, err
	})
}

func (r *repository) ByUser(ctx context.Context, f Filter) ([]UserTotal, error) {
	where := scope(f, true)
	rows, err := r.db.Query(ctx, `SELECT q.created_by, COALESCE(u.name, ''), COUNT(*), COALESCE(SUM(q.grand_total), 0)
FROM quotations q LEFT JOIN users u ON u.id = q.created_by `+where.SQL()+`
GROUP BY q.created_by, u.name ORDER BY 4 DESC, 2`, where.Args()...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserTotal, error) {
		var u UserTotal
		err := row.Scan(&u.UserID, &u.Name, &u.Count, &u.Total)
		return u, err
	})
}

func (r *repository) TopProducts(ctx context.Context, f Filter, limit int) ([]ProductTotal, error) {
	where := scope(f, true)
	rows, err := r.db.Query(ctx, `SELECT i.product_id, COALESCE(p.sku, ''), COALESCE(p.name, 'Custom items'),
COALESCE(SUM(i.quantity), 0), COALESCE(SUM(i.line_total), 0)
FROM quotation_items i
JOIN quotations q ON q.id = i.quotation_id
LEFT JOIN products p ON p.id = i.product_id `+where.SQL()+`
GROUP BY i.product_id, p.sku, p.name ORDER BY 5 DESC LIMIT `+where.Next(1), append(where.Args(), limit)...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductTotal, error) {
		var p ProductTotal
		err := row.Scan(&p.ProductID, &p.SKU, &p.Name, &p.Quantity, &p.Revenue)
		return p, err
	})
}

func (r *repository) Approved(ctx context.Context, f Filter) ([]ApprovedQuote, error) {
	where := scope(f, true)
	rows, err := r.db.Query(ctx, `SELECT q.id, q.reference, q.quote_date, c.name, COALESCE(u.name, ''), q.currency,
q.subtotal, q.discount_total, q.tax_total, q.grand_total
FROM quotations q
JOIN customers c ON c.id = q.customer_id
LEFT JOIN users u ON u.id = q.created_by `+where.SQL()+`
ORDER BY q.quote_date, q.reference`, where.Args()...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ApprovedQuote, error) {
		var a ApprovedQuote
		err := row.Scan(&a.ID, &a.Reference, &a.QuoteDate, &a.CustomerName, &a.OwnerName, &a.Currency,
			&a.Subtotal, &a.Discount, &a.Tax, &a.Total)
		return a, err
	})
}

func (r *repository) SalesUsers(ctx context.Context) ([]SalesUser, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM users WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SalesUser, error) {
		var u SalesUser
		err := row.Scan(&u.ID, &u.Name)
		return u, err
	})
}
