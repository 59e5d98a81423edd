package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/silaibook/silaibook/internal/customers"
	"github.com/silaibook/silaibook/internal/shared"
)

// CustomerDirectory resolves active customers.
type CustomerDirectory interface {
	Lookup(ctx context.Context, id int64) (customers.Customer, error)
}

// Invalidator drops cached dashboard rollups.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service records customer payments.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	cache     Invalidator
}

// NewService constructs the payment service. cache may be nil.
func NewService(repo Repository, customers CustomerDirectory, cache Invalidator) *Service {
	return &Service{repo: repo, customers: customers, cache: cache}
}

// Create records a payment against an active customer. The customer's name is
// copied onto the payment.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (Payment, error) {
	if !in.PaidAmount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: invalid payment amount", shared.ErrInvalidInput)
	}
	if in.TotalBill.IsNegative() {
		return Payment{}, fmt.Errorf("%w: total_bill cannot be negative", shared.ErrInvalidInput)
	}
	var due *time.Time
	if raw := strings.TrimSpace(in.DueDate); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Payment{}, fmt.Errorf("%w: invalid due date format", shared.ErrInvalidInput)
		}
		due = &parsed
	}
	customer, err := s.customers.Lookup(ctx, in.CustomerID)
	if err != nil {
		return Payment{}, err
	}
	mode := strings.TrimSpace(in.PaymentMode)
	if mode == "" {
		mode = "Cash"
	}
	remaining := in.TotalBill.Sub(in.PaidAmount)
	p, err := s.repo.Insert(ctx, Payment{
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		TotalBill:       in.TotalBill,
		PaidAmount:      in.PaidAmount,
		RemainingAmount: remaining,
		Status:          StatusFor(remaining),
		PaymentMode:     mode,
		DueDate:         due,
		CreatedBy:       actor,
	})
	if err != nil {
		return Payment{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// List returns every payment, newest first.
func (s *Service) List(ctx context.Context) ([]Payment, error) {
	return s.repo.List(ctx, 0)
}

// ByCustomer returns one customer's payments, newest first.
func (s *Service) ByCustomer(ctx context.Context, customerID int64) ([]Payment, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer id must be positive", shared.ErrInvalidInput)
	}
	return s.repo.List(ctx, customerID)
}

// Summary returns the per-customer totals.
func (s *Service) Summary(ctx context.Context) ([]CustomerSummary, error) {
	return s.repo.Summary(ctx)
}

// Delete removes a payment.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: payment %d", shared.ErrNotFound, id)
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

// invalidate is best effort; stale rollups expire with the cache TTL.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}
