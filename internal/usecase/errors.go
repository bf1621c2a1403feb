package usecase

import (
	"errors"

	"rent_payment_service/internal/usecase/interfaces"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrUserNotFound      = errors.New("user details not found")
	ErrPaymentRejected   = errors.New("payment rejected by gateway")
	ErrInconsistentState = errors.New("payment initialized at gateway but not persisted")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrMalformedCallback = errors.New("malformed gateway callback")

	ErrUpstreamUnavailable = interfaces.ErrUpstreamUnavailable
	ErrUpstreamRejected    = interfaces.ErrUpstreamRejected
)
