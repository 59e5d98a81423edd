package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/shared"
)

// Service serves the dashboard rollups through the cache.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService constructs the dashboard service. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// TodayIncome sums payments received since UTC midnight.
func (s *Service) TodayIncome(ctx context.Context) (decimal.Decimal, error) {
	start := dayStart(s.now())
	var out decimal.Decimal
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.Income(ctx, start, start.AddDate(0, 0, 1))
	}, "today-income", start.Format("2006-01-02"))
	return out, err
}

// PendingAmount sums what customers still owe on partial payments.
func (s *Service) PendingAmount(ctx context.Context) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.PendingAmount(ctx)
	}, "pending-amount")
	return out, err
}

// StockSummary reports the remaining meters and the low-stock lot count.
// It reads the ledger directly because stock moves without a cache bump.
func (s *Service) StockSummary(ctx context.Context) (StockSummary, error) {
	return s.repo.Stock(ctx, LowStockThreshold)
}

// CustomerCount counts active customers.
func (s *Service) CustomerCount(ctx context.Context) (int64, error) {
	return s.repo.ActiveCustomers(ctx)
}

// ProfitLoss compares one month's income with its expenses by type.
func (s *Service) ProfitLoss(ctx context.Context, year, month int) (ProfitLoss, error) {
	from, to, err := monthRange(year, month)
	if err != nil {
		return ProfitLoss{}, err
	}
	var out ProfitLoss
	err = s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		income, err := s.repo.Income(ctx, from, to)
		if err != nil {
			return nil, err
		}
		byType, err := s.repo.ExpensesByType(ctx, from, to)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, v := range byType {
			total = total.Add(v)
		}
		return ProfitLoss{Year: year, Month: month, Income: income, Expenses: byType, TotalExpense: total, Profit: income.Sub(total)}, nil
	}, "profit-loss", strconv.Itoa(year), strconv.Itoa(month))
	return out, err
}

// YearlyTrend returns income, expense and profit for each month of year.
func (s *Service) YearlyTrend(ctx context.Context, year int) (YearlyTrend, error) {
	if _, _, err := monthRange(year, 1); err != nil {
		return YearlyTrend{}, err
	}
	var out YearlyTrend
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		income, err := s.repo.MonthlyIncome(ctx, year)
		if err != nil {
			return nil, err
		}
		expense, err := s.repo.MonthlyExpense(ctx, year)
		if err != nil {
			return nil, err
		}
		trend := YearlyTrend{Year: year, Months: make([]MonthTotals, 0, 12)}
		for m := 1; m <= 12; m++ {
			in, ex := income[m], expense[m]
			trend.Months = append(trend.Months, MonthTotals{Month: m, Income: in, Expense: ex, Profit: in.Sub(ex)})
		}
		return trend, nil
	}, "yearly-trend", strconv.Itoa(year))
	return out, err
}

func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return load(ctx, dest, loader)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func monthRange(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid month %d-%d", shared.ErrInvalidInput, year, month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
