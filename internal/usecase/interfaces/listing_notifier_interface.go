package interfaces

import (
	"context"

	"rent_payment_service/internal/domain/entities"
)

// IListingNotifier confirms terminal payment status to the property listing service.
type IListingNotifier interface {
	ConfirmPayment(ctx context.Context, propertyID, paymentID string, status entities.PaymentStatus) error
}
