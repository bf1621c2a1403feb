package routes

import (
	"rent_payment_service/internal/adapter/http/handlers"
	"rent_payment_service/internal/adapter/http/middleware"

	"github.com/gin-gonic/gin"
)

const (
	PathPayments = "/payments"
	PathWebhook  = "/webhook/chapa"
	PathHealth   = "/health"
)

func addPaymentRoutes(rg *gin.RouterGroup, deps Dependencies, paymentHandler *handlers.PaymentHandler) {
	limiter := middleware.NewRateLimiter(deps.InitiateRateLimit, deps.InitiateRateWindow)

	payments := rg.Group(PathPayments)
	{
		payments.POST("/initiate",
			limiter.Middleware(),
			middleware.RequireServiceOrBearer(deps.Identities, deps.Logger),
			paymentHandler.Initiate,
		)
		payments.GET("/:id/status", middleware.RequireBearer(deps.Identities, deps.Logger), paymentHandler.GetStatus)
	}
}

func addWebhookRoutes(rg *gin.RouterGroup, webhookHandler *handlers.WebhookHandler) {
	// The gateway POSTs callbacks and redirects browsers with a GET.
	rg.POST(PathWebhook, webhookHandler.Receive)
	rg.GET(PathWebhook, webhookHandler.Redirect)
}

func addHealthRoutes(rg *gin.RouterGroup, healthHandler *handlers.HealthHandler) {
	rg.GET(PathHealth, healthHandler.Health)
}
