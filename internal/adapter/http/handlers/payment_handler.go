package handlers

import (
	"net/http"

	request "rent_payment_service/internal/adapter/http/dto/request"
	response "rent_payment_service/internal/adapter/http/dto/response"
	"rent_payment_service/internal/adapter/http/middleware"
	"rent_payment_service/internal/usecase"
	"rent_payment_service/pkg"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errInvalidPaymentPayload = pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request body", http.StatusBadRequest)
	errMissingIdentity       = pkg.NewDomainErrorSimple("UNAUTHORIZED", "Unauthorized", http.StatusUnauthorized)
)

// PaymentHandler handles listing-fee payment requests.
type PaymentHandler struct {
	usecase usecase.IPaymentUseCase
	logger  *zap.Logger
}

func NewPaymentHandler(uc usecase.IPaymentUseCase, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{usecase: uc, logger: logger.Named("payment.handler")}
}

// Initiate starts (or replays) a payment for a property listing.
//
// @Summary      Initiate listing payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payload  body      request.InitiatePaymentRequest  true  "Payment request"
// @Success      202      {object}  response.PaymentResponse
// @Failure      400      {object}  pkg.HTTPError
// @Failure      401      {object}  pkg.HTTPError
// @Failure      403      {object}  pkg.HTTPError
// @Failure      429      {object}  pkg.HTTPError
// @Failure      503      {object}  pkg.HTTPError
// @Security     Bearer
// @Security     ApiKey
// @Router       /payments/initiate [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(errMissingIdentity.HTTPStatus, errMissingIdentity.ToHTTPError())
		return
	}

	var payload request.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Info("invalid initiate payload", zap.Error(err))
		c.JSON(errInvalidPaymentPayload.HTTPStatus, errInvalidPaymentPayload.ToHTTPError())
		return
	}

	view, err := h.usecase.Initiate(c.Request.Context(), payload.ToInput(), actor)
	if err != nil {
		h.logger.Info("initiate failed", zap.String("request_id", payload.RequestID), zap.String("user_id", actor.UserID), zap.Error(err))
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusAccepted, response.FromPaymentView(view))
}

// GetStatus returns a payment to its owner or an admin.
//
// @Summary      Payment status
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.PaymentResponse
// @Failure      401  {object}  pkg.HTTPError
// @Failure      403  {object}  pkg.HTTPError
// @Failure      404  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /payments/{id}/status [get]
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(errMissingIdentity.HTTPStatus, errMissingIdentity.ToHTTPError())
		return
	}

	view, err := h.usecase.GetStatus(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromPaymentView(view))
}
