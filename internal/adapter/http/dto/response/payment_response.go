package response

import (
	"time"

	"rent_payment_service/internal/domain/entities"
)

type PaymentResponse struct {
	ID              string     `json:"id"`
	RequestID       string     `json:"request_id"`
	PropertyID      string     `json:"property_id"`
	UserID          string     `json:"user_id"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	CheckoutURL     string     `json:"checkout_url,omitempty"`
	MaskedReference string     `json:"masked_reference"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

func FromPaymentView(v entities.PaymentView) PaymentResponse {
	return PaymentResponse{
		ID:              v.ID,
		RequestID:       v.RequestID,
		PropertyID:      v.PropertyID,
		UserID:          v.UserID,
		Amount:          v.Amount.StringFixed(2),
		Currency:        v.Currency,
		Status:          string(v.Status),
		CheckoutURL:     v.CheckoutURL,
		MaskedReference: v.MaskedReference,
		FailureReason:   v.FailureReason,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
		ApprovedAt:      v.ApprovedAt,
	}
}

const (
	WebhookMessageNotFound         = "Payment not found, no action taken"
	WebhookMessageAlreadyProcessed = "Payment already processed, no action taken"
	WebhookMessageProcessed        = "Webhook processed successfully"
)

type WebhookResponse struct {
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func FromIngestResult(r entities.IngestResult) WebhookResponse {
	switch r.Outcome {
	case entities.IngestOutcomeNotFound:
		return WebhookResponse{Message: WebhookMessageNotFound}
	case entities.IngestOutcomeAlreadyProcessed:
		return WebhookResponse{Message: WebhookMessageAlreadyProcessed}
	default:
		return WebhookResponse{Message: WebhookMessageProcessed, Status: string(r.Status)}
	}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
