package handlers

import (
	"context"
	"net/http"
	"time"

	response "rent_payment_service/internal/adapter/http/dto/response"
	"rent_payment_service/internal/domain/entities"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 5 * time.Second

type StorePinger interface {
	Ping(ctx context.Context) error
}

type BankLister interface {
	ListBanks(ctx context.Context) ([]entities.Bank, error)
}

type HealthHandler struct {
	store   StorePinger
	gateway BankLister
	logger  *zap.Logger
}

func NewHealthHandler(store StorePinger, gateway BankLister, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: store, gateway: gateway, logger: logger.Named("health.handler")}
}

// Health reports store and gateway reachability.
//
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.HealthResponse
// @Failure      503  {object}  response.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok", "gateway": "ok"}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("store unreachable", zap.Error(err))
		checks["store"] = "unavailable"
		healthy = false
	}
	if _, err := h.gateway.ListBanks(ctx); err != nil {
		h.logger.Warn("gateway unreachable", zap.Error(err))
		checks["gateway"] = "unavailable"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	c.JSON(http.StatusOK, response.HealthResponse{Status: "healthy", Checks: checks})
}
