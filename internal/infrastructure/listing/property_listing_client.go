package listing

import (
	"context"
	"fmt"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/infrastructure/httpclient"
	"rent_payment_service/internal/infrastructure/retry"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// PropertyListingClient confirms payment outcomes to the property listing service.
type PropertyListingClient struct {
	client *resty.Client
	exec   *retry.Executor
	logger *zap.Logger
}

var _ interfaces.IListingNotifier = (*PropertyListingClient)(nil)

type confirmRequest struct {
	PropertyID string `json:"property_id"`
	PaymentID  string `json:"payment_id"`
	Status     string `json:"status"`
}

func NewPropertyListingClient(baseURL, apiKey string, timeout time.Duration, exec *retry.Executor, logger *zap.Logger) *PropertyListingClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyListingClient{
		client: httpclient.New(baseURL, timeout).
			SetHeader("X-API-Key", apiKey).
			SetHeader("Content-Type", "application/json"),
		exec:   exec,
		logger: logger.Named("listing.client"),
	}
}

func (c *PropertyListingClient) ConfirmPayment(ctx context.Context, propertyID, paymentID string, status entities.PaymentStatus) error {
	body := confirmRequest{PropertyID: propertyID, PaymentID: paymentID, Status: string(status)}
	err := c.exec.Do(ctx, "listing.confirm", func(ctx context.Context) error {
		return httpclient.Check(c.client.R().SetContext(ctx).SetBody(body).Post("/payments/confirm"))
	})
	if err != nil {
		c.logger.Error("confirm failed",
			zap.String("property_id", propertyID),
			zap.String("payment_id", paymentID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return fmt.Errorf("confirm payment %s: %w", paymentID, err)
	}
	c.logger.Info("confirm sent", zap.String("property_id", propertyID), zap.String("payment_id", paymentID), zap.String("status", string(status)))
	return nil
}
