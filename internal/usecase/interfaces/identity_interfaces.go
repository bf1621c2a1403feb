package interfaces

import (
	"context"
	"time"

	"rent_payment_service/internal/domain/entities"
)

// IIdentityCache is advisory storage of verified identities keyed by raw credential.
type IIdentityCache interface {
	Get(ctx context.Context, credential string) (entities.Identity, bool, error)
	Set(ctx context.Context, credential string, identity entities.Identity, ttl time.Duration) error
}

// ICredentialValidator checks a bearer credential locally (signature, expiry).
type ICredentialValidator interface {
	Validate(credential string) (entities.CredentialClaims, error)
}

// IUserDirectory is the identity-owning service.
//
// VerifyCredential maps 401 to ErrUnauthorized, 403 to ErrForbidden and
// unreachable to ErrUpstreamUnavailable. GetUser returns ErrNotFound for
// unknown users.
type IUserDirectory interface {
	VerifyCredential(ctx context.Context, credential string) (entities.Identity, error)
	GetUser(ctx context.Context, userID string) (entities.Identity, error)
}
