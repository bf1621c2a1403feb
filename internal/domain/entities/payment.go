package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment.
//
// PENDING is the only non-terminal state. SUCCESS and FAILED never change again.

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// MaskedReference replaces the gateway reference in every payment view.
const MaskedReference = "********"

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s.IsTerminal()
}

// Payment is the entity persisted by the payment store.
//
// Uniqueness:
//   - request_id (idempotency key of the initiating caller)
//   - gateway_reference (tx_ref sent to the gateway)

type Payment struct {
	ID               string          `json:"id"`
	RequestID        string          `json:"request_id"`
	PropertyID       string          `json:"property_id"`
	UserID           string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	GatewayReference string          `json:"gateway_reference"`
	CheckoutURL      string          `json:"checkout_url,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
}

// StatusTransition describes a PENDING -> terminal move.
type StatusTransition struct {
	Status        PaymentStatus
	FailureReason string
	At            time.Time
}

// Apply returns a copy of p with the transition applied.
func (t StatusTransition) Apply(p Payment) Payment {
	p.Status = t.Status
	p.UpdatedAt = t.At
	if t.Status == PaymentStatusSuccess {
		at := t.At
		p.ApprovedAt = &at
		p.FailureReason = ""
	} else {
		p.ApprovedAt = nil
		p.FailureReason = t.FailureReason
	}
	return p
}

// PaymentView is what callers see. The gateway reference is always masked.
type PaymentView struct {
	ID              string
	RequestID       string
	PropertyID      string
	UserID          string
	Amount          decimal.Decimal
	Currency        string
	Status          PaymentStatus
	CheckoutURL     string
	MaskedReference string
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
}

func NewPaymentView(p Payment) PaymentView {
	return PaymentView{
		ID:              p.ID,
		RequestID:       p.RequestID,
		PropertyID:      p.PropertyID,
		UserID:          p.UserID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          p.Status,
		CheckoutURL:     p.CheckoutURL,
		MaskedReference: MaskedReference,
		FailureReason:   p.FailureReason,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		ApprovedAt:      p.ApprovedAt,
	}
}

// PaymentStats is an aggregate over every stored payment.
// Revenue sums SUCCESS amounts only.
type PaymentStats struct {
	Total   int64
	Pending int64
	Success int64
	Failed  int64
	Revenue decimal.Decimal
}

// Add counts p into the aggregate.
func (s *PaymentStats) Add(p Payment) {
	s.Total++
	switch p.Status {
	case PaymentStatusPending:
		s.Pending++
	case PaymentStatusSuccess:
		s.Success++
		s.Revenue = s.Revenue.Add(p.Amount)
	case PaymentStatusFailed:
		s.Failed++
	}
}
