package interfaces

import (
	"context"

	"rent_payment_service/internal/domain/entities"
)

// IPaymentGateway abstracts the hosted-checkout payment provider (Chapa).
//
// Initialize and Verify return ErrUpstreamRejected for 4xx answers and
// ErrUpstreamUnavailable once transient failures exhaust the retry budget.
type IPaymentGateway interface {
	Initialize(ctx context.Context, req entities.CheckoutRequest) (entities.CheckoutResult, error)
	Verify(ctx context.Context, reference string) (entities.GatewayVerification, error)
	ListBanks(ctx context.Context) ([]entities.Bank, error)
	VerifySignature(rawBody []byte, signature string) bool
}
