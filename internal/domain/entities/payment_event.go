package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEvent is emitted whenever a payment reaches a terminal status.
type PaymentEvent struct {
	PaymentID     string          `json:"payment_id"`
	RequestID     string          `json:"request_id"`
	PropertyID    string          `json:"property_id"`
	UserID        string          `json:"user_id"`
	Status        PaymentStatus   `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewPaymentEvent(p Payment) PaymentEvent {
	return PaymentEvent{
		PaymentID:     p.ID,
		RequestID:     p.RequestID,
		PropertyID:    p.PropertyID,
		UserID:        p.UserID,
		Status:        p.Status,
		FailureReason: p.FailureReason,
		Amount:        p.Amount,
		Currency:      p.Currency,
		OccurredAt:    p.UpdatedAt,
	}
}
