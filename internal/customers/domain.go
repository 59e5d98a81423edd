package customers

import "time"

// Measurements holds free-form body measurements keyed by name (chest, waist, ...).
type Measurements map[string]any

// Customer is a person the shop tailors for.
type Customer struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Mobile       string       `json:"mobile"`
	Category     string       `json:"category,omitempty"`
	PhotoURL     string       `json:"photo_url,omitempty"`
	Measurements Measurements `json:"measurements"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CreateInput is the payload for registering a customer.
type CreateInput struct {
	Name         string       `json:"name" validate:"required,max=120"`
	Mobile       string       `json:"mobile" validate:"required,min=6,max=20"`
	Category     string       `json:"category" validate:"max=60"`
	PhotoURL     string       `json:"photo_url" validate:"omitempty,max=500"`
	Measurements Measurements `json:"measurements"`
}

// UpdateInput carries the fields to change. Nil fields are left untouched.
type UpdateInput struct {
	Name         *string      `json:"name" validate:"omitempty,min=1,max=120"`
	Mobile       *string      `json:"mobile" validate:"omitempty,min=6,max=20"`
	Category     *string      `json:"category" validate:"omitempty,max=60"`
	PhotoURL     *string      `json:"photo_url" validate:"omitempty,max=500"`
	Measurements Measurements `json:"measurements"`
}

// Empty reports whether the update changes nothing.
func (u UpdateInput) Empty() bool {
	return u.Name == nil && u.Mobile == nil && u.Category == nil && u.PhotoURL == nil && u.Measurements == nil
}

// ListFilters narrows the customer list.
type ListFilters struct {
	Search string
}
