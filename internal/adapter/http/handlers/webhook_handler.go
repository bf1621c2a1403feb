package handlers

import (
	"net/http"
	"strings"

	response "rent_payment_service/internal/adapter/http/dto/response"
	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SignatureHeader    = "x-chapa-signature"
	AltSignatureHeader = "Chapa-Signature"

	maxWebhookBody = 1 << 20
)

// WebhookHandler receives gateway callbacks: signed server-to-server pushes
// and browser redirects after checkout.
type WebhookHandler struct {
	usecase usecase.IPaymentUseCase
	logger  *zap.Logger
}

func NewWebhookHandler(uc usecase.IPaymentUseCase, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{usecase: uc, logger: logger.Named("webhook.handler")}
}

// Receive handles the signed push notification.
//
// @Summary      Chapa webhook
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        x-chapa-signature  header    string  false  "HMAC-SHA256 of the raw body"
// @Success      200                {object}  response.WebhookResponse
// @Failure      400                {object}  pkg.HTTPError
// @Failure      401                {object}  pkg.HTTPError
// @Router       /webhook/chapa [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	raw, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("webhook body unreadable", zap.Error(err))
		h.fail(c, usecase.ErrMalformedCallback)
		return
	}

	signature := strings.TrimSpace(c.GetHeader(SignatureHeader))
	if signature == "" {
		signature = strings.TrimSpace(c.GetHeader(AltSignatureHeader))
	}

	h.ingest(c, entities.GatewayCallback{Signed: true, RawBody: raw, Signature: signature})
}

// Redirect handles the browser return from checkout. The reported status is
// not trusted; the payment is re-verified with the gateway.
//
// @Summary      Chapa redirect callback
// @Tags         webhook
// @Produce      json
// @Param        trx_ref  query     string  true  "Gateway reference"
// @Param        status   query     string  true  "Reported status"
// @Success      200      {object}  response.WebhookResponse
// @Failure      400      {object}  pkg.HTTPError
// @Router       /webhook/chapa [get]
func (h *WebhookHandler) Redirect(c *gin.Context) {
	reference := c.Query("trx_ref")
	if reference == "" {
		reference = c.Query("tx_ref")
	}
	h.ingest(c, entities.GatewayCallback{Reference: reference, ReportedStatus: c.Query("status")})
}

func (h *WebhookHandler) ingest(c *gin.Context, cb entities.GatewayCallback) {
	result, err := h.usecase.Ingest(c.Request.Context(), cb)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("callback handled",
		zap.Bool("signed", cb.Signed),
		zap.String("outcome", string(result.Outcome)),
		zap.String("payment_id", result.PaymentID),
	)
	c.JSON(http.StatusOK, response.FromIngestResult(result))
}

func (h *WebhookHandler) fail(c *gin.Context, err error) {
	appErr := mapWebhookError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("callback failed", zap.Error(err))
	}
	c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
}
