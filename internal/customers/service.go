package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/silaibook/silaibook/internal/shared"
)

// Service implements the customer directory.
type Service struct {
	repo Repository
}

// NewService constructs the customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Lookup returns an active customer. Inactive or missing customers are NotFound.
func (s *Service) Lookup(ctx context.Context, id int64) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
		}
		return Customer{}, err
	}
	if !c.IsActive {
		return Customer{}, fmt.Errorf("%w: customer %d is inactive", shared.ErrNotFound, id)
	}
	return c, nil
}

// Create registers a customer. A mobile number already on file is Duplicate.
func (s *Service) Create(ctx context.Context, in CreateInput) (Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if in.Name == "" || in.Mobile == "" {
		return Customer{}, fmt.Errorf("%w: name and mobile are required", shared.ErrInvalidInput)
	}
	c, err := s.repo.Create(ctx, in)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Customer{}, fmt.Errorf("%w: customer already exists", shared.ErrDuplicate)
		}
		return Customer{}, err
	}
	return c, nil
}

// List returns active customers, newest first. Search matches the name
// case-insensitively or any part of the mobile number.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Customer, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.List(ctx, filters)
}

// Update applies a partial update to an active customer.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	if in.Empty() {
		return fmt.Errorf("%w: no fields to update", shared.ErrInvalidInput)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", shared.ErrInvalidInput)
		}
		in.Name = &name
	}
	if in.Mobile != nil {
		mobile := strings.TrimSpace(*in.Mobile)
		in.Mobile = &mobile
	}
	err := s.repo.Update(ctx, id, in)
	if errors.Is(err, shared.ErrDuplicate) {
		return fmt.Errorf("%w: mobile already registered", shared.ErrDuplicate)
	}
	return err
}

// Deactivate soft-deletes the customer.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

// Count returns the number of customers, optionally only active ones.
func (s *Service) Count(ctx context.Context, activeOnly bool) (int64, error) {
	return s.repo.Count(ctx, activeOnly)
}
