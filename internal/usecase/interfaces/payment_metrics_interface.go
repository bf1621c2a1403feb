package interfaces

import "rent_payment_service/internal/domain/entities"

// IPaymentMetrics receives in-process counter increments. Implementations must
// be safe for concurrent use.
type IPaymentMetrics interface {
	IncInitiateCalls()
	IncStatusCalls()
	IncWebhookCalls()
	IncTimeoutSweeps()
	IncTransitions(status entities.PaymentStatus)
}
