// Package dashboard gathers the figures shown on the landing page.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/shared"
)

const (
	recentLimit       = 8
	topCustomersLimit = 5
	queryTimeout      = 3 * time.Second
)

// CustomerTotal is the approved value quoted to one customer.
type CustomerTotal struct {
	CustomerID int64
	Name       string
	Count      int
	Total      decimal.Decimal
}

// Overview is everything the dashboard renders.
type Overview struct {
	StatusCounts  map[string]int
	Approved      int
	ApprovedTotal decimal.Decimal
	Pending       int
	Recent        []shared.QuoteSummary
	TopCustomers  []CustomerTotal
	MonthStart    time.Time
}

// Repository runs the dashboard queries. ownerID narrows every query to one
// creator when set.
type Repository interface {
	StatusCounts(ctx context.Context, ownerID *int64) (map[string]int, error)
	ApprovedSince(ctx context.Context, ownerID *int64, since time.Time) (int, decimal.Decimal, error)
	Recent(ctx context.Context, ownerID *int64, limit int) ([]shared.QuoteSummary, error)
	TopCustomers(ctx context.Context, ownerID *int64, since time.Time, limit int) ([]CustomerTotal, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	clock  func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, clock: time.Now}
}

// Overview loads the dashboard figures concurrently. Sales users only see
// their own quotations.
func (s *Service) Overview(ctx context.Context, user *shared.CurrentUser) (Overview, error) {
	var owner *int64
	if user != nil && !user.Can(shared.PermQuotationsViewAll) {
		id := user.ID
		owner = &id
	}
	now := s.clock()
	out := Overview{MonthStart: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)}
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.StatusCounts, err = s.repo.StatusCounts(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		out.Approved, out.ApprovedTotal, err = s.repo.ApprovedSince(gctx, owner, out.MonthStart)
		return err
	})
	g.Go(func() (err error) {
		out.Recent, err = s.repo.Recent(gctx, owner, recentLimit)
		return err
	})
	g.Go(func() (err error) {
		out.TopCustomers, err = s.repo.TopCustomers(gctx, owner, yearStart, topCustomersLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard overview", slog.Any("error", err))
		return Overview{}, err
	}
	if out.StatusCounts == nil {
		out.StatusCounts = map[string]int{}
	}
	out.Pending = out.StatusCounts["pending"]
	return out, nil
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func ownerWhere(ownerID *int64) db.Where {
	var where db.Where
	if ownerID != nil {
		where.Add("q.created_by = ?", *ownerID)
	}
	return where
}

func (r *repository) StatusCounts(ctx context.Context, ownerID *int64) (map[string]int, error) {
	where := ownerWhere(ownerID)
	rows, err := r.db.Query(ctx, "SELECT q.status, COUNT(*) FROM quotations q "+where.SQL()+" GROUP BY q.status", where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *repository) ApprovedSince(ctx context.Context, ownerID *int64, since time.Time) (int, decimal.Decimal, error) {
	where := ownerWhere(ownerID)
	where.Add("q.status = 'approved'")
	where.Add("q.decided_at >= ?", since)
	var n int
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, "SELECT COUNT(*), COALESCE(SUM(q.grand_total), 0) FROM quotations q "+where.SQL(), where.Args()...).Scan(&n, &total)
	return n, total, err
}

func (r *repository) Recent(ctx context.Context, ownerID *int64, limit int) ([]shared.QuoteSummary, error) {
	where := ownerWhere(ownerID)
	rows, err := r.db.Query(ctx, `SELECT q.id, q.reference, q.title, c.name, q.status, q.version, q.grand_total, q.currency, q.quote_date
FROM quotations q JOIN customers c ON c.id = q.customer_id `+where.SQL()+`
ORDER BY q.updated_at DESC, q.id DESC LIMIT `+where.Next(1), append(where.Args(), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.QuoteSummary
	for rows.Next() {
		var s shared.QuoteSummary
		if err := rows.Scan(&s.ID, &s.Reference, &s.Title, &s.CustomerName, &s.Status, &s.Version, &s.GrandTotal, &s.Currency, &s.QuoteDate); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) TopCustomers(ctx context.Context, ownerID *int64, since time.Time, limit int) ([]CustomerTotal, error) {
	where := ownerWhere(ownerID)
	where.Add("q.status = 'approved'")
	where.Add("q.quote_date >= ?", since)
	rows, err := r.db.Query(ctx, `SELECT c.id, c.name, COUNT(*), COALESCE(SUM(q.grand_total), 0)
FROM quotations q JOIN customers c ON c.id = q.customer_id `+where.SQL()+`
GROUP BY c.id, c.name ORDER BY 4 DESC, c.name LIMIT `+where.Next(1), append(where.Args(), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CustomerTotal
	for rows.Next() {
		var c CustomerTotal
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Count, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
