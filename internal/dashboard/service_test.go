package dashboard

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/silaibook/silaibook/internal/shared"
)

type stubRepo struct {
	mu      sync.Mutex
	calls   map[string]int
	income  decimal.Decimal
	pending decimal.Decimal
	byType  map[string]decimal.Decimal
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		calls:   map[string]int{},
		income:  decimal.RequireFromString("5000"),
		pending: decimal.RequireFromString("1200"),
		byType:  map[string]decimal.Decimal{"SHOP": decimal.RequireFromString("1500"), "Withdrawal": decimal.RequireFromString("500")},
	}
}

func (s *stubRepo) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *stubRepo) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubRepo) Income(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	s.hit("income")
	return s.income, nil
}

func (s *stubRepo) PendingAmount(ctx context.Context) (decimal.Decimal, error) {
	s.hit("pending")
	return s.pending, nil
}

func (s *stubRepo) Stock(ctx context.Context, lowStockBelow int) (StockSummary, error) {
	s.hit("stock")
	return StockSummary{TotalRemainingMeters: decimal.RequireFromString("142.5"), LowStockItems: 2}, nil
}

func (s *stubRepo) ActiveCustomers(ctx context.Context) (int64, error) {
	s.hit("customers")
	return 12, nil
}

func (s *stubRepo) ExpensesByType(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error) {
	s.hit("expenses")
	return s.byType, nil
}

func (s *stubRepo) MonthlyIncome(ctx context.Context, year int) (map[int]decimal.Decimal, error) {
	s.hit("monthly_income")
	return map[int]decimal.Decimal{1: decimal.NewFromInt(900), 3: decimal.NewFromInt(400)}, nil
}

func (s *stubRepo) MonthlyExpense(ctx context.Context, year int) (map[int]decimal.Decimal, error) {
	s.hit("monthly_expense")
	return map[int]decimal.Decimal{3: decimal.NewFromInt(700)}, nil
}

func newCachedService(t *testing.T) (*Service, *stubRepo, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newStubRepo()
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, repo, cache
}

func TestCachedRollupsAndBump(t *testing.T) {
	svc, repo, cache := newCachedService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := svc.TodayIncome(ctx)
		require.NoError(t, err)
		assert.True(t, v.Equal(decimal.NewFromInt(5000)))
	}
	assert.Equal(t, 1, repo.count("income"))

	repo.income = decimal.NewFromInt(6000)
	require.NoError(t, cache.Bump(ctx))
	v, err := svc.TodayIncome(ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, 2, repo.count("income"))

	_, err = svc.StockSummary(ctx)
	require.NoError(t, err)
	_, err = svc.StockSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.count("stock"), "stock is read live")
}

func TestProfitLossAndTrend(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	pl, err := svc.ProfitLoss(ctx, 2025, 3)
	require.NoError(t, err)
	assert.True(t, pl.TotalExpense.Equal(decimal.NewFromInt(2000)))
	assert.True(t, pl.Profit.Equal(decimal.NewFromInt(3000)))
	assert.True(t, pl.Expenses["SHOP"].Equal(decimal.NewFromInt(1500)))

	_, err = svc.ProfitLoss(ctx, 2025, 0)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	trend, err := svc.YearlyTrend(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, trend.Months, 12)
	assert.True(t, trend.Months[0].Profit.Equal(decimal.NewFromInt(900)))
	assert.True(t, trend.Months[2].Profit.Equal(decimal.NewFromInt(-300)))
	assert.True(t, trend.Months[11].Income.IsZero())
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PendingAmount(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, repo.count("pending"), 8)
	assert.GreaterOrEqual(t, repo.count("pending"), 1)

	_, err := svc.PendingAmount(ctx)
	require.NoError(t, err)
	before := repo.count("pending")
	_, err = svc.PendingAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, repo.count("pending"))
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)
	_, err := svc.PendingAmount(context.Background())
	require.NoError(t, err)
	_, err = svc.PendingAmount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.count("pending"))
	var nilCache *Cache
	require.NoError(t, nilCache.Bump(context.Background()))
}

func TestMonthlyReportWorkbook(t *testing.T) {
	svc, _, _ := newCachedService(t)
	body, err := svc.MonthlyReport(context.Background(), 2025, 3)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	period, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", period)
	income, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "5000", income)

	rows, err := f.GetRows(trendSheet)
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"Month", "Income", "Expense", "Profit"}, rows[0])
}

func TestHandlerRoutes(t *testing.T) {
	svc, _, _ := newCachedService(t)
	r := chi.NewRouter()
	r.Route("/dashboard", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)
	do := func(target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		return rr
	}

	rr := do("/dashboard/today-income")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"today_income":5000}`, rr.Body.String())

	rr = do("/dashboard/stock-summary")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"total_remaining_meters":142.5,"low_stock_items":2}`, rr.Body.String())

	rr = do("/dashboard/customer-count")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"total_customers":12}`, rr.Body.String())

	require.Equal(t, http.StatusBadRequest, do("/dashboard/profit-loss?year=2025&month=13").Code)
	require.Equal(t, http.StatusOK, do("/dashboard/yearly-trend?year=2025").Code)

	rr = do("/dashboard/monthly-report.xlsx?year=2025&month=3")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "silaibook-2025-03.xlsx")
	assert.NotZero(t, rr.Body.Len())
}
