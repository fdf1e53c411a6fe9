package reports

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quotedesk/quotedesk/internal/platform/cache"
	"github.com/quotedesk/quotedesk/internal/quotations"
	"github.com/quotedesk/quotedesk/internal/shared"
)

const topProductsLimit = 10

var hundred = decimal.NewFromInt(100)

// Service builds sales reports and caches them by filter.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	logger *slog.Logger
	clock  func() time.Time
}

// NewService wires the report repository with the versioned cache. The cache
// may be nil, in which case every request hits the database.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger, clock: time.Now}
}

// ParseFilter reads the report query parameters. Users without the view_all
// permission always see their own quotations.
func (s *Service) ParseFilter(user *shared.CurrentUser, from, to, userID string) (Filter, error) {
	now := s.clock()
	f := Filter{
		From: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	errs := shared.FormErrors{}
	if v := strings.TrimSpace(from); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs.Add("from", "must be a valid date")
		}
		f.From = t
	}
	if v := strings.TrimSpace(to); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs.Add("to", "must be a valid date")
		}
		f.To = t
	}
	if !errs.Any() && f.To.Before(f.From) {
		errs.Add("to", "must not be before the start date")
	}
	if errs.Any() {
		return f, errs
	}
	if user == nil || !user.Can(shared.PermReportsViewAll) {
		var id int64
		if user != nil {
			id = user.ID
		}
		f.UserID = &id
		return f, nil
	}
	f.UserID = shared.ParseOptionalID(userID)
	return f, nil
}

// Sales returns the report for f, from cache when possible.
func (s *Service) Sales(ctx context.Context, f Filter) (SalesReport, error) {
	key, err := s.cache.BuildKey(ctx, "sales", f.From.Format(dateLayout), f.To.Format(dateLayout), userToken(f.UserID))
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		return s.build(ctx, f)
	}
	var report SalesReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.build(ctx, f)
	})
	return report, err
}

// Warmup builds the current month's report for all users so the first
// manager to open it hits the cache.
func (s *Service) Warmup(ctx context.Context) error {
	now := s.clock()
	f := Filter{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	_, err := s.Sales(ctx, f)
	return err
}

// SalesUsers lists the users selectable in the report filter.
func (s *Service) SalesUsers(ctx context.Context) ([]SalesUser, error) {
	return s.repo.SalesUsers(ctx)
}

func (s *Service) build(ctx context.Context, f Filter) (SalesReport, error) {
	report := SalesReport{
		From:        f.From.Format(dateLayout),
		To:          f.To.Format(dateLayout),
		UserID:      f.UserID,
		GeneratedAt: s.clock().UTC(),
	}
	var statuses []StatusTotal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.ByMonth, err = s.repo.ByMonth(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		statuses, err = s.repo.ByStatus(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		report.ByUser, err = s.repo.ByUser(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		report.TopProducts, err = s.repo.TopProducts(gctx, f, topProductsLimit)
		return err
	})
	g.Go(func() (err error) {
		report.Quotations, err = s.repo.Approved(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return SalesReport{}, err
	}

	report.ByStatus = completeStatuses(statuses)
	var rejected int
	for _, st := range report.ByStatus {
		switch quotations.Status(st.Status) {
		case quotations.StatusApproved:
			report.ApprovedCount = st.Count
			report.ApprovedTotal = st.Total
		case quotations.StatusRejected:
			rejected = st.Count
		}
	}
	report.DecidedCount = report.ApprovedCount + rejected
	report.ConversionRate = ConversionRate(report.ApprovedCount, report.DecidedCount)
	return report, nil
}

// ConversionRate is approved / decided as a percentage with one decimal.
func ConversionRate(approved, decided int) decimal.Decimal {
	if decided == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(approved)).Mul(hundred).Div(decimal.NewFromInt(int64(decided))).Round(1)
}

// completeStatuses returns one row per workflow status in workflow order.
func completeStatuses(rows []StatusTotal) []StatusTotal {
	byStatus := make(map[string]StatusTotal, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row
	}
	out := make([]StatusTotal, 0, len(quotations.Statuses()))
	for _, st := range quotations.Statuses() {
		row, ok := byStatus[string(st)]
		if !ok {
			row = StatusTotal{Status: string(st), Total: decimal.Zero}
		}
		out = append(out, row)
	}
	return out
}

func userToken(id *int64) string {
	if id == nil {
		return "all"
	}
	return strconv.FormatInt(*id, 10)
}
