package models

import "time"

// PaymentStatus is the lifecycle state of an order's payment.
type PaymentStatus string

const (
	StatusUnpaid    PaymentStatus = "unpaid"
	StatusInitiated PaymentStatus = "initiated"
	StatusPaid      PaymentStatus = "paid"
	StatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether the status is final. A terminal order must never
// be mutated again, even if a late webhook or poll disagrees.
func (s PaymentStatus) Terminal() bool {
	return s == StatusPaid || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the unpaid -> initiated -> {paid, failed} state machine. Re-initiating an
// already-initiated order is allowed so a fresh gateway session can replace
// the previous one; every other repeat or downgrade is rejected.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusUnpaid:
		return next == StatusInitiated || next == StatusPaid || next == StatusFailed
	case StatusInitiated:
		return next == StatusInitiated || next == StatusPaid || next == StatusFailed
	}
	return false
}

// TransitionSources returns every status from which next is legally
// reachable. Store implementations use it to phrase the transition guard as
// a WHERE clause.
func TransitionSources(next PaymentStatus) []PaymentStatus {
	all := []PaymentStatus{StatusUnpaid, StatusInitiated, StatusPaid, StatusFailed}
	var sources []PaymentStatus
	for _, s := range all {
		if s.CanTransitionTo(next) {
			sources = append(sources, s)
		}
	}
	return sources
}

// Order represents a single checkout attempt and doubles as the receipt
// record once the payment resolves. Orders are never deleted.
type Order struct {
	// PurchaseID is generated locally at checkout time, before any gateway
	// contact, and is immutable once assigned.
	PurchaseID string `json:"purchaseId" gorm:"primaryKey;type:varchar(36)"`
	// GatewayOrderID is the identifier sent to the payment gateway. It is
	// regenerated only when the gateway reports a duplicate-ID conflict.
	GatewayOrderID   string        `json:"gatewayOrderId" gorm:"index;type:varchar(64)"`
	ProductID        string        `json:"productId" gorm:"type:varchar(36)"`
	ProductName      string        `json:"productName"`
	Amount           float64       `json:"amount"`
	CustomerName     string        `json:"customerName"`
	CustomerEmail    string        `json:"customerEmail"`
	CustomerPhone    string        `json:"customerPhone" gorm:"type:varchar(16)"`
	CustomerAddress  string        `json:"customerAddress"`
	TelegramUsername string        `json:"telegramUsername"`
	TelegramLink     string        `json:"telegramLink"`
	PaymentStatus    PaymentStatus `json:"paymentStatus" gorm:"type:varchar(16);index"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// CheckoutDraft is the payload submitted by the checkout form. Validation
// tags enforce the required customer fields, a well-formed email and an
// exactly-10-digit phone number.
type CheckoutDraft struct {
	PurchaseID       string  `json:"purchaseId" validate:"omitempty,max=64"`
	ProductID        string  `json:"productId" validate:"required"`
	ProductName      string  `json:"productName" validate:"omitempty,max=100"`
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	CustomerName     string  `json:"customerName" validate:"required"`
	CustomerEmail    string  `json:"customerEmail" validate:"required,email"`
	CustomerPhone    string  `json:"customerPhone" validate:"required,len=10,numeric"`
	CustomerAddress  string  `json:"customerAddress" validate:"required"`
	TelegramUsername string  `json:"telegramUsername" validate:"required"`
}
