package handlers

import (
	"errors"
	"net/http"

	"rent_payment_service/internal/usecase"
	"rent_payment_service/internal/usecase/interfaces"
	"rent_payment_service/pkg"
)

func mapPaymentError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return pkg.NewDomainError("INVALID_REQUEST", err.Error(), err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrMalformedCallback):
		return pkg.NewDomainError("INVALID_REQUEST", "Invalid request", err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrUnauthenticated), errors.Is(err, usecase.ErrInvalidSignature):
		return pkg.NewDomainErrorSimple("UNAUTHORIZED", "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrForbidden):
		return pkg.NewDomainErrorSimple("FORBIDDEN", "Access denied", http.StatusForbidden)
	case errors.Is(err, usecase.ErrPaymentNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_NOT_FOUND", "Payment not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrUserNotFound):
		return pkg.NewDomainErrorSimple("USER_NOT_FOUND", "User details not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrPaymentRejected):
		return pkg.NewDomainError("PAYMENT_REJECTED", rejectionMessage(err, "Payment initiation rejected"), err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrUpstreamRejected):
		return pkg.NewDomainError("UPSTREAM_REJECTED", "Upstream service rejected the request", err, http.StatusBadGateway)
	case errors.Is(err, usecase.ErrUpstreamUnavailable):
		return pkg.NewDomainError("UPSTREAM_UNAVAILABLE", "Upstream service unavailable", err, http.StatusServiceUnavailable)
	case errors.Is(err, usecase.ErrInconsistentState):
		return pkg.NewDomainError("PAYMENT_NOT_RECORDED", "Payment could not be recorded; contact support", err, http.StatusInternalServerError)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}

// rejectionMessage surfaces the gateway's explanation when it gave one.
func rejectionMessage(err error, fallback string) string {
	var rej *interfaces.RejectionError
	if errors.As(err, &rej) && rej.Message != "" {
		return rej.Message
	}
	return fallback
}

// mapWebhookError never exposes the cause to the caller.
func mapWebhookError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidSignature):
		return pkg.NewDomainErrorSimple("UNAUTHORIZED", "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrMalformedCallback):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrUpstreamUnavailable):
		return pkg.NewDomainErrorSimple("UPSTREAM_UNAVAILABLE", "Service unavailable", http.StatusServiceUnavailable)
	default:
		return pkg.NewDomainErrorSimple("INTERNAL_ERROR", "An internal error occurred", http.StatusInternalServerError)
	}
}
