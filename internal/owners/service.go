package owners

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/audit"
	"github.com/silaibook/silaibook/internal/expenses"
	"github.com/silaibook/silaibook/internal/shared"
)

// DefaultRole is assigned when a profile names none.
const DefaultRole = "Partner"

// Drawings books partner movements as expense rows.
type Drawings interface {
	RecordDrawing(ctx context.Context, e expenses.Expense) (expenses.Expense, error)
}

// Auditor records who moved money.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Transactor runs fn inside a unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Invalidator drops cached dashboard rollups.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service manages partner profiles and their drawings.
type Service struct {
	repo     Repository
	drawings Drawings
	audit    Auditor
	tx       Transactor
	cache    Invalidator
}

// NewService constructs the owner service. cache may be nil.
func NewService(repo Repository, drawings Drawings, auditor Auditor, tx Transactor, cache Invalidator) *Service {
	return &Service{repo: repo, drawings: drawings, audit: auditor, tx: tx, cache: cache}
}

// Create opens a profile. An active owner with the same name is Duplicate.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (Owner, error) {
	in.Name = strings.TrimSpace(in.Name)
	if len(in.Name) < 2 {
		return Owner{}, fmt.Errorf("%w: name must have at least 2 characters", shared.ErrInvalidInput)
	}
	if err := checkShare(in.SharePercentage); err != nil {
		return Owner{}, err
	}
	if strings.TrimSpace(in.Role) == "" {
		in.Role = DefaultRole
	}
	o, err := s.repo.Create(ctx, in, actor)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Owner{}, fmt.Errorf("%w: owner with this name already exists", shared.ErrDuplicate)
		}
		return Owner{}, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context) ([]Owner, error) {
	return s.repo.List(ctx)
}

// Get returns a profile, including deactivated ones.
func (s *Service) Get(ctx context.Context, id int64) (Owner, error) {
	o, err := s.repo.Get(ctx, id)
	return o, notFound(err, id)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	if in.Empty() {
		return fmt.Errorf("%w: no fields to update", shared.ErrInvalidInput)
	}
	if in.SharePercentage != nil {
		if err := checkShare(*in.SharePercentage); err != nil {
			return err
		}
	}
	err := s.repo.Update(ctx, id, in)
	if errors.Is(err, shared.ErrDuplicate) {
		return fmt.Errorf("%w: owner with this name already exists", shared.ErrDuplicate)
	}
	return notFound(err, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return notFound(s.repo.Deactivate(ctx, id), id)
}

// Withdraw records money a partner takes out. The balance change, the expense
// row and the audit entry commit together.
func (s *Service) Withdraw(ctx context.Context, id int64, m Movement, actor string) (MovementResult, error) {
	return s.move(ctx, id, m, expenses.TypeWithdrawal, actor)
}

// Deposit records money a partner pays back.
func (s *Service) Deposit(ctx context.Context, id int64, m Movement, actor string) (MovementResult, error) {
	return s.move(ctx, id, m, expenses.TypeDeposit, actor)
}

func (s *Service) move(ctx context.Context, id int64, m Movement, kind, actor string) (MovementResult, error) {
	if !m.Amount.IsPositive() {
		return MovementResult{}, fmt.Errorf("%w: amount must be positive", shared.ErrInvalidInput)
	}
	delta := m.Amount
	verb := "Withdrawal"
	if kind == expenses.TypeDeposit {
		delta = m.Amount.Neg()
		verb = "Deposit"
	}
	var result MovementResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		owner, err := s.repo.AdjustWithdrawn(ctx, id, delta)
		if err != nil {
			return notFound(err, id)
		}
		ownerID := owner.ID
		if _, err := s.drawings.RecordDrawing(ctx, expenses.Expense{
			Amount:      m.Amount,
			Category:    expenses.DrawingsCategory,
			ExpenseType: kind,
			Description: fmt.Sprintf("%s by %s: %s", verb, owner.Name, strings.TrimSpace(m.Note)),
			OwnerID:     &ownerID,
			OwnerName:   owner.Name,
			CreatedBy:   actor,
		}); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, audit.Entry{
			Actor:    actor,
			Action:   strings.ToLower(verb),
			Entity:   "owners",
			EntityID: strconv.FormatInt(owner.ID, 10),
			Meta:     map[string]any{"amount": m.Amount.String(), "total_withdrawn": owner.TotalWithdrawn.String()},
		}); err != nil {
			return err
		}
		result = MovementResult{Message: verb + " recorded successfully", NewTotal: owner.TotalWithdrawn}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	return result, nil
}

func checkShare(v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: share_percentage must be between 0 and 100", shared.ErrInvalidInput)
	}
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: owner %d", shared.ErrNotFound, id)
	}
	return err
}
