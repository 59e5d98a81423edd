package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/shared"
)

// Invalidator drops cached dashboard rollups.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service records business expenses.
type Service struct {
	repo  Repository
	cache Invalidator
	now   func() time.Time
}

// NewService constructs the expense service. cache may be nil.
func NewService(repo Repository, cache Invalidator) *Service {
	return &Service{repo: repo, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Create records a hand-entered expense.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (Expense, error) {
	if !in.Amount.IsPositive() {
		return Expense{}, fmt.Errorf("%w: amount must be positive", shared.ErrInvalidInput)
	}
	e, err := s.repo.Insert(ctx, Expense{
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		ExpenseType: strings.TrimSpace(in.ExpenseType),
		PaymentMode: strings.TrimSpace(in.PaymentMode),
		Remarks:     strings.TrimSpace(in.Remarks),
		CreatedBy:   actor,
	})
	if err != nil {
		return Expense{}, err
	}
	s.invalidate(ctx)
	return e, nil
}

// RecordDrawing books an owner withdrawal or deposit. It joins the caller's
// transaction and leaves cache invalidation to the caller.
func (s *Service) RecordDrawing(ctx context.Context, e Expense) (Expense, error) {
	if e.ExpenseType != TypeWithdrawal && e.ExpenseType != TypeDeposit {
		return Expense{}, fmt.Errorf("%w: drawing type %q", shared.ErrInvalidInput, e.ExpenseType)
	}
	if e.Category == "" {
		e.Category = DrawingsCategory
	}
	return s.repo.Insert(ctx, e)
}

// List returns expenses newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Expense, error) {
	return s.repo.List(ctx, filters)
}

// TodayTotal sums the expenses of the current UTC day.
func (s *Service) TodayTotal(ctx context.Context, expenseType string) (decimal.Decimal, error) {
	start := startOfDay(s.now())
	return s.repo.Total(ctx, Window{From: start, To: start.AddDate(0, 0, 1), ExpenseType: strings.TrimSpace(expenseType)})
}

// MonthlySummary breaks one month's expenses down by category.
func (s *Service) MonthlySummary(ctx context.Context, year, month int, expenseType string) (MonthlySummary, error) {
	from, to, err := MonthRange(year, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	expenseType = strings.TrimSpace(expenseType)
	breakdown, err := s.repo.ByCategory(ctx, Window{From: from, To: to, ExpenseType: expenseType})
	if err != nil {
		return MonthlySummary{}, err
	}
	label := expenseType
	if label == "" {
		label = "ALL"
	}
	return MonthlySummary{Year: year, Month: month, ExpenseType: label, Breakdown: breakdown}, nil
}

// MonthRange returns the UTC bounds [first day, first day of next month).
func MonthRange(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid month %d-%d", shared.ErrInvalidInput, year, month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}
