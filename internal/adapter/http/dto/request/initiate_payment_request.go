package request

import (
	"strings"

	"rent_payment_service/internal/usecase"

	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest is the payload of POST /payments/initiate.
//
// `user_id` is read only for service (API key) callers. `amount` is checked
// but the configured listing fee is what gets charged.
type InitiatePaymentRequest struct {
	RequestID  string           `json:"request_id" example:"6f1c7a52-3b8e-4c1f-9d8e-2a4b5c6d7e8f"`
	PropertyID string           `json:"property_id" example:"0b6e1f0a-8c2d-4e5f-a1b2-c3d4e5f6a7b8"`
	UserID     string           `json:"user_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty" swaggertype:"number"`
}

func (r InitiatePaymentRequest) ToInput() usecase.InitiatePaymentInput {
	return usecase.InitiatePaymentInput{
		RequestID:  strings.TrimSpace(r.RequestID),
		PropertyID: strings.TrimSpace(r.PropertyID),
		UserID:     strings.TrimSpace(r.UserID),
		Amount:     r.Amount,
	}
}
