package interfaces

import (
	"context"

	"rent_payment_service/internal/domain/entities"
)

type IPaymentEventPublisher interface {
	PublishStatusChanged(ctx context.Context, event entities.PaymentEvent) error
}
