package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"go.uber.org/zap"
)

const DefaultIdentityCacheTTL = 30 * time.Minute

// IIdentityUseCase resolves callers from bearer credentials or the service API key.
type IIdentityUseCase interface {
	Resolve(ctx context.Context, credential string) (entities.Identity, error)
	ResolveAPIKey(apiKey string) (entities.Identity, bool, error)
	Authenticate(ctx context.Context, apiKey, credential string) (entities.Identity, error)
}

type IdentityUseCase struct {
	cache         interfaces.IIdentityCache
	validator     interfaces.ICredentialValidator
	directory     interfaces.IUserDirectory
	serviceAPIKey string
	defaultTTL    time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

var _ IIdentityUseCase = (*IdentityUseCase)(nil)

// NewIdentityUseCase accepts a nil cache; every resolution then goes to the directory.
func NewIdentityUseCase(cache interfaces.IIdentityCache, validator interfaces.ICredentialValidator, directory interfaces.IUserDirectory, serviceAPIKey string, defaultTTL time.Duration, logger *zap.Logger) *IdentityUseCase {
	if defaultTTL <= 0 {
		defaultTTL = DefaultIdentityCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityUseCase{
		cache:         cache,
		validator:     validator,
		directory:     directory,
		serviceAPIKey: serviceAPIKey,
		defaultTTL:    defaultTTL,
		now:           time.Now,
		logger:        logger.Named("identity.usecase"),
	}
}

func (u *IdentityUseCase) Resolve(ctx context.Context, credential string) (entities.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return entities.Identity{}, ErrUnauthenticated
	}

	if u.cache != nil {
		cached, found, err := u.cache.Get(ctx, credential)
		switch {
		case err != nil:
			u.logger.Warn("identity cache read failed; verifying live", zap.Error(err))
		case found:
			return cached, nil
		}
	}

	claims, err := u.validator.Validate(credential)
	if err != nil {
		u.logger.Info("credential rejected locally", zap.Error(err))
		return entities.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	identity, err := u.directory.VerifyCredential(ctx, credential)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrUnauthorized):
			return entities.Identity{}, ErrUnauthenticated
		case errors.Is(err, interfaces.ErrForbidden):
			return entities.Identity{}, ErrForbidden
		case errors.Is(err, context.Canceled), errors.Is(err, interfaces.ErrUpstreamUnavailable):
			return entities.Identity{}, err
		default:
			return entities.Identity{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	}
	if identity.UserID == "" {
		identity.UserID = claims.Subject
	}

	ttl := u.defaultTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(u.now())
	}
	if u.cache != nil && ttl > 0 {
		if err := u.cache.Set(ctx, credential, identity, ttl); err != nil {
			u.logger.Warn("identity cache write failed", zap.String("user_id", identity.UserID), zap.Error(err))
		}
	}
	return identity, nil
}

// ResolveAPIKey reports found=false when no key was presented.
func (u *IdentityUseCase) ResolveAPIKey(apiKey string) (entities.Identity, bool, error) {
	if apiKey == "" {
		return entities.Identity{}, false, nil
	}
	if u.serviceAPIKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(u.serviceAPIKey)) != 1 {
		u.logger.Warn("invalid service api key presented")
		return entities.Identity{}, false, fmt.Errorf("%w: invalid api key", ErrUnauthenticated)
	}
	return entities.Identity{UserID: entities.ServiceUserID, Role: entities.RoleService}, true, nil
}

// Authenticate accepts either the service API key or a bearer credential.
func (u *IdentityUseCase) Authenticate(ctx context.Context, apiKey, credential string) (entities.Identity, error) {
	identity, found, err := u.ResolveAPIKey(apiKey)
	if err != nil {
		return entities.Identity{}, err
	}
	if found {
		return identity, nil
	}
	if strings.TrimSpace(credential) == "" {
		return entities.Identity{}, ErrUnauthenticated
	}
	return u.Resolve(ctx, credential)
}
