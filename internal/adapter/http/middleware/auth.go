package middleware

import (
	"errors"
	"net/http"
	"strings"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase"
	"rent_payment_service/pkg"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	IdentityKey  = "identity"
	APIKeyHeader = "X-API-Key"
)

// RequireBearer resolves the caller from the Authorization header.
func RequireBearer(identities usecase.IIdentityUseCase, logger *zap.Logger) gin.HandlerFunc {
	log := named(logger, "auth.middleware")
	return func(c *gin.Context) {
		identity, err := identities.Resolve(c.Request.Context(), bearerCredential(c))
		if err != nil {
			abortAuth(c, log, err)
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// RequireServiceOrBearer accepts the internal service API key or a user credential.
func RequireServiceOrBearer(identities usecase.IIdentityUseCase, logger *zap.Logger) gin.HandlerFunc {
	log := named(logger, "auth.middleware")
	return func(c *gin.Context) {
		identity, err := identities.Authenticate(c.Request.Context(), strings.TrimSpace(c.GetHeader(APIKeyHeader)), bearerCredential(c))
		if err != nil {
			abortAuth(c, log, err)
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (entities.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return entities.Identity{}, false
	}
	identity, ok := v.(entities.Identity)
	return identity, ok
}

func bearerCredential(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortAuth(c *gin.Context, log *zap.Logger, err error) {
	appErr := mapAuthError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error("identity resolution failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		log.Info("request not authenticated", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
}

func mapAuthError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrUnauthenticated):
		return pkg.NewDomainErrorSimple("UNAUTHORIZED", "Invalid or missing credentials", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrForbidden):
		return pkg.NewDomainErrorSimple("FORBIDDEN", "Access denied", http.StatusForbidden)
	case errors.Is(err, usecase.ErrUpstreamUnavailable):
		return pkg.NewDomainError("IDENTITY_UNAVAILABLE", "Identity service unavailable", err, http.StatusServiceUnavailable)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}

func named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(name)
}
