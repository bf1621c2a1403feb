package interfaces

import (
	"context"
	"time"

	"rent_payment_service/internal/domain/entities"
)

// IPaymentRepository abstracts persistence for Payment.
//
// Implementations must:
//   - reject a second row for the same request_id or gateway_reference with ErrDuplicatePayment
//   - return a zero-value Payment (empty ID) when a lookup finds nothing
//   - apply TransitionFromPending atomically, only while the row is PENDING

type IPaymentRepository interface {
	Create(ctx context.Context, p entities.Payment) (entities.Payment, error)
	GetByID(ctx context.Context, id string) (entities.Payment, error)
	GetByRequestID(ctx context.Context, requestID string) (entities.Payment, error)
	GetByGatewayReference(ctx context.Context, reference string) (entities.Payment, error)
	// TransitionFromPending reports applied=false when the row is missing or already terminal.
	TransitionFromPending(ctx context.Context, id string, t entities.StatusTransition) (entities.Payment, bool, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]entities.Payment, error)
	// Stats aggregates counts per status and the SUCCESS revenue over the whole store.
	Stats(ctx context.Context) (entities.PaymentStats, error)
	Ping(ctx context.Context) error
}
