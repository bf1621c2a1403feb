package interfaces

import (
	"errors"
	"fmt"
)

// Errors returned by port implementations. The use cases translate them into
// their own taxonomy.
var (
	ErrDuplicatePayment    = errors.New("payment already exists")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrUpstreamRejected    = errors.New("upstream service rejected the request")
	ErrUnauthorized        = errors.New("credential rejected by identity service")
	ErrForbidden           = errors.New("identity service denied access")
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidCredential   = errors.New("invalid credential")
)

// RejectionError is an explicit refusal by a remote service (4xx or a failure
// status in the body). It matches ErrUpstreamRejected with errors.Is.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("rejected with status %d: %s", e.StatusCode, e.Message)
	}
	return "rejected: " + e.Message
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrUpstreamRejected
}
