package reports

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/platform/cache"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubRepo struct {
	builds atomic.Int32
	filter atomic.Pointer[Filter]
}

func (s *stubRepo) ByMonth(ctx context.Context, f Filter) ([]MonthTotal, error) {
	s.builds.Add(1)
	s.filter.Store(&f)
	return []MonthTotal{{Month: "2025-09", Count: 1, Total: d("500")}, {Month: "2025-10", Count: 2, Total: d("1250.50")}}, nil
}

func (s *stubRepo) ByStatus(ctx context.Context, f Filter) ([]StatusTotal, error) {
	return []StatusTotal{
		{Status: "approved", Count: 3, Total: d("1750.50")},
		{Status: "rejected", Count: 1, Total: d("90")},
		{Status: "draft", Count: 4, Total: d("10")},
	}, nil
}

func (s *stubRepo) ByUser(ctx context.Context, f Filter) ([]UserTotal, error) {
	return []UserTotal{{UserID: 5, Name: "Sam", Count: 3, Total: d("1750.50")}}, nil
}

func (s *stubRepo) TopProducts(ctx context.Context, f Filter, limit int) ([]ProductTotal, error) {
	id := int64(3)
	return []ProductTotal{
		{ProductID: &id, SKU: "DSK-1", Name: "Desk", Quantity: d("6"), Revenue: d("1200")},
		{Name: "Custom items", Quantity: d("1"), Revenue: d("550.50")},
	}, nil
}

func (s *stubRepo) Approved(ctx context.Context, f Filter) ([]ApprovedQuote, error) {
	return []ApprovedQuote{{
		ID: 1, Reference: "QT-202510-0001", QuoteDate: time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
		CustomerName: "Acme, Ltd", OwnerName: "Sam", Currency: "USD",
		Subtotal: d("1000"), Discount: d("0"), Tax: d("100"), Total: d("1100"),
	}}, nil
}

func (s *stubRepo) SalesUsers(ctx context.Context) ([]SalesUser, error) {
	return []SalesUser{{ID: 5, Name: "Sam"}}, nil
}

func newService(t *testing.T) (*Service, *stubRepo, *cache.Versioned) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewVersioned(client, "reports", time.Minute)
	repo := &stubRepo{}
	svc := NewService(repo, c, nil)
	svc.clock = func() time.Time { return time.Date(2025, time.October, 16, 14, 0, 0, 0, time.UTC) }
	return svc, repo, c
}

func user(role rbac.Role, id int64) *shared.CurrentUser {
	return &shared.CurrentUser{ID: id, Role: string(role), Permissions: rbac.PermissionsFor(role)}
}

func TestParseFilter(t *testing.T) {
	svc, _, _ := newService(t)

	t.Run("defaults to year to date", func(t *testing.T) {
		f, err := svc.ParseFilter(user(rbac.RoleManager, 9), "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-01", f.From.Format(dateLayout))
		assert.Equal(t, "2025-10-16", f.To.Format(dateLayout))
		assert.Nil(t, f.UserID)
	})

	t.Run("manager may pick a user", func(t *testing.T) {
		f, err := svc.ParseFilter(user(rbac.RoleManager, 9), "2025-09-01", "2025-09-30", "5")
		require.NoError(t, err)
		require.NotNil(t, f.UserID)
		assert.Equal(t, int64(5), *f.UserID)
	})

	t.Run("sales user is pinned to self", func(t *testing.T) {
		f, err := svc.ParseFilter(user(rbac.RoleSales, 5), "", "", "7")
		require.NoError(t, err)
		require.NotNil(t, f.UserID)
		assert.Equal(t, int64(5), *f.UserID)
	})

	t.Run("invalid dates", func(t *testing.T) {
		_, err := svc.ParseFilter(user(rbac.RoleManager, 9), "yesterday", "2025-13-01", "")
		var errs shared.FormErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "must be a valid date", errs["from"])
		assert.Equal(t, "must be a valid date", errs["to"])
	})

	t.Run("reversed range", func(t *testing.T) {
		_, err := svc.ParseFilter(user(rbac.RoleManager, 9), "2025-10-01", "2025-09-01", "")
		var errs shared.FormErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "must not be before the start date", errs["to"])
	})
}

func TestSalesAggregates(t *testing.T) {
	svc, _, _ := newService(t)
	f, err := svc.ParseFilter(user(rbac.RoleManager, 9), "2025-09-01", "2025-10-31", "")
	require.NoError(t, err)

	report, err := svc.Sales(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, "2025-09-01", report.From)
	assert.Equal(t, 3, report.ApprovedCount)
	assert.True(t, d("1750.50").Equal(report.ApprovedTotal))
	assert.Equal(t, 4, report.DecidedCount)
	assert.Equal(t, "75.0", report.ConversionRate.StringFixed(1))

	require.Len(t, report.ByStatus, 4)
	assert.Equal(t, "draft", report.ByStatus[0].Status)
	assert.Equal(t, "pending", report.ByStatus[1].Status)
	assert.Equal(t, 0, report.ByStatus[1].Count)
	assert.Len(t, report.TopProducts, 2)
	assert.Len(t, report.ByMonth, 2)
}

func TestSalesCachesUntilBump(t *testing.T) {
	svc, repo, c := newService(t)
	ctx := context.Background()
	f, err := svc.ParseFilter(user(rbac.RoleManager, 9), "", "", "")
	require.NoError(t, err)

	_, err = svc.Sales(ctx, f)
	require.NoError(t, err)
	_, err = svc.Sales(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.builds.Load())

	require.NoError(t, c.Bump(ctx))
	report, err := svc.Sales(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.builds.Load())
	assert.True(t, d("1250.50").Equal(report.ByMonth[1].Total))

	own, err := svc.ParseFilter(user(rbac.RoleSales, 5), "", "", "")
	require.NoError(t, err)
	_, err = svc.Sales(ctx, own)
	require.NoError(t, err)
	assert.Equal(t, int32(3), repo.builds.Load(), "per-user reports use their own key")
}

func TestWarmupBuildsCurrentMonth(t *testing.T) {
	svc, repo, _ := newService(t)

	require.NoError(t, svc.Warmup(context.Background()))

	f := repo.filter.Load()
	require.NotNil(t, f)
	assert.Equal(t, "2025-10-01", f.From.Format(dateLayout))
	assert.Equal(t, "2025-10-16", f.To.Format(dateLayout))
	assert.Nil(t, f.UserID)
}

func TestConversionRate(t *testing.T) {
	assert.True(t, ConversionRate(0, 0).IsZero())
	assert.Equal(t, "33.3", ConversionRate(1, 3).StringFixed(1))
	assert.Equal(t, "100.0", ConversionRate(2, 2).StringFixed(1))
}
