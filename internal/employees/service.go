package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/shared"
)

// Service manages karigar records and wage advances.
type Service struct {
	repo Repository
}

// NewService constructs the employee service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Employee{}, fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	if in.SalaryAmount.IsNegative() || in.AdvancePaid.IsNegative() {
		return Employee{}, fmt.Errorf("%w: amounts cannot be negative", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update to an active employee.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	if in.Empty() {
		return fmt.Errorf("%w: no fields to update", shared.ErrInvalidInput)
	}
	if (in.SalaryAmount != nil && in.SalaryAmount.IsNegative()) || (in.AdvancePaid != nil && in.AdvancePaid.IsNegative()) {
		return fmt.Errorf("%w: amounts cannot be negative", shared.ErrInvalidInput)
	}
	return notFound(s.repo.Update(ctx, id, in), id)
}

// PayAdvance adds amount to the employee's advance and returns the new total.
func (s *Service) PayAdvance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must be positive", shared.ErrInvalidInput)
	}
	total, err := s.repo.AddAdvance(ctx, id, amount)
	if err != nil {
		return decimal.Decimal{}, notFound(err, id)
	}
	return total, nil
}

func (s *Service) SalaryStatus(ctx context.Context, id int64) (SalaryStatus, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalaryStatus{}, notFound(err, id)
	}
	return StatusOf(e), nil
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return notFound(s.repo.Deactivate(ctx, id), id)
}

func notFound(err error, id int64) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: employee %d", shared.ErrNotFound, id)
	}
	return err
}
