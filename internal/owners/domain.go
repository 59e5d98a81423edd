package owners

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner is a partner or investor in the shop.
type Owner struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Role              string          `json:"role"`
	SharePercentage   decimal.Decimal `json:"share_percentage"`
	Mobile            string          `json:"mobile,omitempty"`
	Email             string          `json:"email,omitempty"`
	InitialInvestment decimal.Decimal `json:"initial_investment"`
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"`
	JoinedDate        time.Time       `json:"joined_date"`
	IsActive          bool            `json:"is_active"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CreateInput opens a partner profile.
type CreateInput struct {
	Name              string          `json:"name" validate:"required,min=2,max=120"`
	Role              string          `json:"role" validate:"max=40"`
	SharePercentage   decimal.Decimal `json:"share_percentage" validate:"gte=0,lte=100"`
	Mobile            string          `json:"mobile" validate:"max=20"`
	Email             string          `json:"email" validate:"omitempty,email"`
	InitialInvestment decimal.Decimal `json:"initial_investment" validate:"gte=0"`
	JoinedDate        *time.Time      `json:"joined_date"`
}

// UpdateInput changes the provided fields only.
type UpdateInput struct {
	Name            *string          `json:"name" validate:"omitempty,min=2,max=120"`
	Role            *string          `json:"role" validate:"omitempty,max=40"`
	SharePercentage *decimal.Decimal `json:"share_percentage"`
	Mobile          *string          `json:"mobile" validate:"omitempty,max=20"`
	Email           *string          `json:"email" validate:"omitempty,email"`
	IsActive        *bool            `json:"is_active"`
}

// Empty reports whether no field is set.
func (u UpdateInput) Empty() bool {
	return u.Name == nil && u.Role == nil && u.SharePercentage == nil && u.Mobile == nil && u.Email == nil && u.IsActive == nil
}

// Movement is money a partner takes out of or returns to the business.
type Movement struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Note   string          `json:"note" validate:"max=500"`
}

// MovementResult reports the partner's running total after a movement.
type MovementResult struct {
	Message  string          `json:"message"`
	NewTotal decimal.Decimal `json:"new_total"`
}
