package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentType is how a check was paid for.
type PaymentType string

const (
	PaymentCash     PaymentType = "cash"
	PaymentCashless PaymentType = "cashless"
)

// Valid reports whether t is one of the supported payment types.
func (t PaymentType) Valid() bool {
	return t == PaymentCash || t == PaymentCashless
}

// Check is a receipt: payment info, computed totals and the owning user.
// Checks are immutable once created.
type Check struct {
	ID         int64       `json:"id" db:"id"`
	Type       PaymentType `json:"type" db:"type"`
	Amount     float64     `json:"amount" db:"amount"`
	Total      float64     `json:"total" db:"total"`
	Rest       float64     `json:"rest" db:"rest"`
	PublicUUID uuid.UUID   `json:"public_uuid" db:"public_uuid"`
	UserID     int64       `json:"user_id" db:"user_id"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`

	Items []*CheckItem `json:"products,omitempty" db:"-"`
}

// CheckItem is one line item of a check. Total is price * quantity,
// fixed at creation time.
type CheckItem struct {
	ID       int64   `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Price    float64 `json:"price" db:"price"`
	Quantity int     `json:"quantity" db:"quantity"`
	Total    float64 `json:"total" db:"total"`
	CheckID  int64   `json:"check_id" db:"check_id"`
}

// Payment is the payment section of a check request or response.
type Payment struct {
	Type   PaymentType `json:"type"`
	Amount float64     `json:"amount"`
}

// Product is a submitted line item before persistence.
type Product struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// CheckCreate is the payload for creating a check.
type CheckCreate struct {
	Products []Product `json:"products"`
	Payment  Payment   `json:"payment"`
}

// CheckFilter narrows check listings. Nil fields are not applied;
// all set fields combine with AND semantics.
type CheckFilter struct {
	CreatedAtLT  *time.Time
	CreatedAtGTE *time.Time
	AmountLT     *float64
	AmountGTE    *float64
	Type         *PaymentType
	Limit        int
	Offset       int
}
