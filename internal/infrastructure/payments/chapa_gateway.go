package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/infrastructure/httpclient"
	"rent_payment_service/internal/infrastructure/retry"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultChapaTimeout = 10 * time.Second

var ErrMissingChapaSecretKey = errors.New("missing CHAPA_SECRET_KEY")

type ChapaConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	// AllowUnsigned accepts webhooks when no WebhookSecret is configured.
	AllowUnsigned bool
	Timeout       time.Duration
}

type ChapaGateway struct {
	client        *resty.Client
	exec          *retry.Executor
	webhookSecret []byte
	allowUnsigned bool
	logger        *zap.Logger
}

var _ interfaces.IPaymentGateway = (*ChapaGateway)(nil)

func NewChapaGateway(cfg ChapaConfig, exec *retry.Executor, logger *zap.Logger) (*ChapaGateway, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingChapaSecretKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChapaTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("payment.gateway")
	if cfg.WebhookSecret == "" {
		if cfg.AllowUnsigned {
			logger.Warn("CHAPA_WEBHOOK_SECRET not set; unsigned webhooks will be accepted")
		} else {
			logger.Warn("CHAPA_WEBHOOK_SECRET not set; signed webhooks will be rejected")
		}
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/json")

	return &ChapaGateway{
		client:        client,
		exec:          exec,
		webhookSecret: []byte(cfg.WebhookSecret),
		allowUnsigned: cfg.AllowUnsigned,
		logger:        logger,
	}, nil
}

type initializeRequest struct {
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email,omitempty"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	PhoneNumber   string            `json:"phone_number"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url"`
	ReturnURL     string            `json:"return_url"`
	Customization customization     `json:"customization"`
	Meta          map[string]string `json:"meta,omitempty"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type initializeResponse struct {
	Message any    `json:"message"`
	Status  string `json:"status"`
	Data    *struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type verifyResponse struct {
	Message any    `json:"message"`
	Status  string `json:"status"`
	Data    *struct {
		Status string `json:"status"`
		TxRef  string `json:"tx_ref"`
	} `json:"data"`
}

type banksResponse struct {
	Message any `json:"message"`
	Data    []struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
		Code any    `json:"swift"`
	} `json:"data"`
}

func (g *ChapaGateway) Initialize(ctx context.Context, req entities.CheckoutRequest) (entities.CheckoutResult, error) {
	body := initializeRequest{
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		TxRef:       req.Reference,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Customization: customization{
			Title:       req.Title,
			Description: req.Description,
		},
		Meta: req.Meta,
	}

	g.logger.Info("initialize start", zap.String("tx_ref", req.Reference), zap.String("amount", body.Amount))
	var out initializeResponse
	err := g.call(ctx, "chapa.initialize", func(ctx context.Context) error {
		out = initializeResponse{}
		resp, err := g.client.R().SetContext(ctx).SetBody(body).Post("/transaction/initialize")
		return httpclient.Decode(resp, err, &out)
	})
	if err != nil {
		g.logger.Error("initialize failed", zap.String("tx_ref", req.Reference), zap.Error(err))
		return entities.CheckoutResult{}, err
	}

	result := entities.CheckoutResult{Status: out.Status, Message: messageString(out.Message)}
	if out.Data != nil {
		result.CheckoutURL = out.Data.CheckoutURL
	}
	g.logger.Info("initialize done", zap.String("tx_ref", req.Reference), zap.String("status", result.Status))
	return result, nil
}

func (g *ChapaGateway) Verify(ctx context.Context, reference string) (entities.GatewayVerification, error) {
	var out verifyResponse
	err := g.call(ctx, "chapa.verify", func(ctx context.Context) error {
		out = verifyResponse{}
		resp, err := g.client.R().SetContext(ctx).Get("/transaction/verify/" + url.PathEscape(reference))
		return httpclient.Decode(resp, err, &out)
	})
	if err != nil {
		g.logger.Error("verify failed", zap.String("tx_ref", reference), zap.Error(err))
		return entities.GatewayVerification{}, err
	}

	v := entities.GatewayVerification{Status: out.Status, Message: messageString(out.Message), Reference: reference}
	if out.Data != nil {
		v.TransactionStatus = out.Data.Status
		if out.Data.TxRef != "" {
			v.Reference = out.Data.TxRef
		}
	}
	g.logger.Info("verify done", zap.String("tx_ref", reference), zap.String("status", v.Status), zap.String("transaction_status", v.TransactionStatus))
	return v, nil
}

func (g *ChapaGateway) ListBanks(ctx context.Context) ([]entities.Bank, error) {
	var out banksResponse
	err := g.call(ctx, "chapa.banks", func(ctx context.Context) error {
		out = banksResponse{}
		resp, err := g.client.R().SetContext(ctx).Get("/banks")
		return httpclient.Decode(resp, err, &out)
	})
	if err != nil {
		return nil, err
	}
	banks := make([]entities.Bank, 0, len(out.Data))
	for _, b := range out.Data {
		bank := entities.Bank{ID: fmt.Sprint(b.ID), Name: b.Name}
		if b.Code != nil {
			bank.Code = fmt.Sprint(b.Code)
		}
		banks = append(banks, bank)
	}
	return banks, nil
}

// VerifySignature checks the hex HMAC-SHA256 of rawBody in constant time.
func (g *ChapaGateway) VerifySignature(rawBody []byte, signature string) bool {
	if len(g.webhookSecret) == 0 {
		return g.allowUnsigned
	}
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(g.webhookSecret, rawBody)), []byte(signature))
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// call runs fn under the retry policy and classifies the final error.
func (g *ChapaGateway) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := g.exec.Do(ctx, op, fn)
	if err == nil {
		return nil
	}
	var se *retry.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		return &interfaces.RejectionError{StatusCode: se.StatusCode, Message: httpclient.Message(se.Body)}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", interfaces.ErrUpstreamUnavailable, op, err)
}

func messageString(m any) string {
	switch v := m.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
