package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/infrastructure/httpclient"
	"rent_payment_service/internal/infrastructure/retry"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultVerifyTimeout = 30 * time.Second
	DefaultLookupTimeout = 5 * time.Second
)

type UserManagementConfig struct {
	BaseURL       string
	APIKey        string
	VerifyTimeout time.Duration
	LookupTimeout time.Duration
}

// UserManagementClient talks to the identity-owning service.
type UserManagementClient struct {
	client        *resty.Client
	exec          *retry.Executor
	apiKey        string
	verifyTimeout time.Duration
	lookupTimeout time.Duration
	logger        *zap.Logger
}

var _ interfaces.IUserDirectory = (*UserManagementClient)(nil)

func NewUserManagementClient(cfg UserManagementConfig, exec *retry.Executor, logger *zap.Logger) *UserManagementClient {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = DefaultVerifyTimeout
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserManagementClient{
		// per-call deadlines come from the context
		client:        httpclient.New(cfg.BaseURL, 0),
		exec:          exec,
		apiKey:        cfg.APIKey,
		verifyTimeout: cfg.VerifyTimeout,
		lookupTimeout: cfg.LookupTimeout,
		logger:        logger.Named("identity.client"),
	}
}

type userPayload struct {
	UserID            string `json:"user_id"`
	ID                string `json:"id"`
	Role              string `json:"role"`
	Email             string `json:"email"`
	PhoneNumber       string `json:"phone_number"`
	PreferredLanguage string `json:"preferred_language"`
}

func (p userPayload) toIdentity() entities.Identity {
	id := p.UserID
	if id == "" {
		id = p.ID
	}
	return entities.Identity{
		UserID:            id,
		Role:              p.Role,
		Email:             p.Email,
		PhoneNumber:       p.PhoneNumber,
		PreferredLanguage: p.PreferredLanguage,
	}
}

func (c *UserManagementClient) VerifyCredential(ctx context.Context, credential string) (entities.Identity, error) {
	var out userPayload
	err := c.exec.Do(ctx, "identity.verify", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
		defer cancel()
		out = userPayload{}
		resp, err := c.client.R().SetContext(ctx).SetAuthToken(credential).Get("/auth/verify")
		return httpclient.Decode(resp, err, &out)
	})
	if err != nil {
		var se *retry.StatusError
		if errors.As(err, &se) {
			switch {
			case se.StatusCode == http.StatusUnauthorized:
				return entities.Identity{}, interfaces.ErrUnauthorized
			case se.StatusCode == http.StatusForbidden:
				return entities.Identity{}, interfaces.ErrForbidden
			case se.StatusCode < 500:
				c.logger.Warn("verify rejected", zap.Int("status", se.StatusCode))
				return entities.Identity{}, interfaces.ErrUnauthorized
			}
		}
		if errors.Is(err, context.Canceled) {
			return entities.Identity{}, err
		}
		c.logger.Error("identity service unreachable", zap.Error(err))
		return entities.Identity{}, fmt.Errorf("%w: %v", interfaces.ErrUpstreamUnavailable, err)
	}
	return out.toIdentity(), nil
}

func (c *UserManagementClient) GetUser(ctx context.Context, userID string) (entities.Identity, error) {
	var out userPayload
	err := c.exec.Do(ctx, "identity.get_user", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
		defer cancel()
		out = userPayload{}
		req := c.client.R().SetContext(ctx)
		if c.apiKey != "" {
			req.SetHeader("X-API-Key", c.apiKey)
		}
		resp, err := req.Get("/users/" + url.PathEscape(userID))
		return httpclient.Decode(resp, err, &out)
	})
	if err != nil {
		var se *retry.StatusError
		if errors.As(err, &se) && se.StatusCode < 500 {
			c.logger.Warn("user lookup rejected", zap.String("user_id", userID), zap.Int("status", se.StatusCode))
			return entities.Identity{}, interfaces.ErrNotFound
		}
		if errors.Is(err, context.Canceled) {
			return entities.Identity{}, err
		}
		c.logger.Error("user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return entities.Identity{}, fmt.Errorf("%w: %v", interfaces.ErrUpstreamUnavailable, err)
	}
	identity := out.toIdentity()
	if identity.UserID == "" {
		identity.UserID = userID
	}
	return identity, nil
}
