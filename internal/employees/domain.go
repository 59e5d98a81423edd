package employees

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a karigar on the shop's payroll.
type Employee struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Contact      string          `json:"contact"`
	WorkType     string          `json:"work_type"`
	SalaryType   string          `json:"salary_type"`
	SalaryAmount decimal.Decimal `json:"salary_amount"`
	AdvancePaid  decimal.Decimal `json:"advance_paid"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateInput registers an employee.
type CreateInput struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Contact      string          `json:"contact" validate:"required,max=40"`
	WorkType     string          `json:"work_type" validate:"required,max=40"`
	SalaryType   string          `json:"salary_type" validate:"required,oneof=Daily Monthly"`
	SalaryAmount decimal.Decimal `json:"salary_amount" validate:"gte=0"`
	AdvancePaid  decimal.Decimal `json:"advance_paid" validate:"gte=0"`
}

// UpdateInput changes the provided fields only.
type UpdateInput struct {
	Name         *string          `json:"name" validate:"omitempty,max=120"`
	Contact      *string          `json:"contact" validate:"omitempty,max=40"`
	WorkType     *string          `json:"work_type" validate:"omitempty,max=40"`
	SalaryType   *string          `json:"salary_type" validate:"omitempty,oneof=Daily Monthly"`
	SalaryAmount *decimal.Decimal `json:"salary_amount"`
	AdvancePaid  *decimal.Decimal `json:"advance_paid"`
}

// Empty reports whether no field is set.
func (u UpdateInput) Empty() bool {
	return u.Name == nil && u.Contact == nil && u.WorkType == nil && u.SalaryType == nil &&
		u.SalaryAmount == nil && u.AdvancePaid == nil
}

// SalaryStatus reports what is still owed for the period.
type SalaryStatus struct {
	SalaryAmount    decimal.Decimal `json:"salary_amount"`
	AdvancePaid     decimal.Decimal `json:"advance_paid"`
	RemainingSalary decimal.Decimal `json:"remaining_salary"`
}

// StatusOf computes the salary status. Remaining never goes below zero.
func StatusOf(e Employee) SalaryStatus {
	remaining := e.SalaryAmount.Sub(e.AdvancePaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return SalaryStatus{SalaryAmount: e.SalaryAmount, AdvancePaid: e.AdvancePaid, RemainingSalary: remaining}
}
