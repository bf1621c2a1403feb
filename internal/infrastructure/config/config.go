package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds every environment-driven setting of the payment service.
type Config struct {
	Port   string
	AppEnv string

	StoreBackend  string
	DatabaseURL   string
	PaymentsTable string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	DynamoDBEndpoint   string

	RedisURL             string
	TokenCacheDefaultTTL time.Duration

	ChapaBaseURL               string
	ChapaSecretKey             string
	ChapaWebhookSecret         string
	ChapaAllowUnsignedWebhooks bool

	JWTSecret                 string
	UserManagementURL         string
	PropertyListingServiceURL string
	PaymentServiceAPIKey      string

	BaseURL             string
	FrontendRedirectURL string

	FixedAmount    decimal.Decimal
	Currency       string
	PaymentTimeout time.Duration
	SweepInterval  time.Duration

	RetryAttempts uint
	RetryDelay    time.Duration

	InitiateRateLimit  int
	InitiateRateWindow time.Duration

	KafkaBrokers            []string
	KafkaPaymentEventsTopic string
}

// Load reads the environment and validates required settings.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:                       getenvDefault("PORT", "8080"),
		AppEnv:                     getenvDefault("APP_ENV", "development"),
		StoreBackend:               strings.ToLower(getenvDefault("STORE_BACKEND", StoreDynamoDB)),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		PaymentsTable:              getenvDefault("PAYMENTS_TABLE", "payments"),
		AWSRegion:                  getenvDefault("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:             os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:         os.Getenv("AWS_SECRET_ACCESS_KEY"),
		DynamoDBEndpoint:           os.Getenv("DYNAMODB_ENDPOINT"),
		RedisURL:                   getenvDefault("REDIS_URL", "redis://localhost:6379/0"),
		ChapaBaseURL:               strings.TrimRight(getenvDefault("CHAPA_BASE_URL", "https://api.chapa.co/v1"), "/"),
		ChapaSecretKey:             os.Getenv("CHAPA_SECRET_KEY"),
		ChapaWebhookSecret:         os.Getenv("CHAPA_WEBHOOK_SECRET"),
		JWTSecret:                  os.Getenv("JWT_SECRET"),
		UserManagementURL:          strings.TrimRight(getenvDefault("USER_MANAGEMENT_URL", "http://localhost:8000/api/v1"), "/"),
		PropertyListingServiceURL:  strings.TrimRight(getenvDefault("PROPERTY_LISTING_SERVICE_URL", "http://localhost:8001/api/v1"), "/"),
		PaymentServiceAPIKey:       os.Getenv("PAYMENT_SERVICE_API_KEY"),
		BaseURL:                    strings.TrimRight(getenvDefault("BASE_URL", "http://localhost:8080"), "/"),
		FrontendRedirectURL:        getenvDefault("FRONTEND_REDIRECT_URL", "http://localhost:3000/payment/complete"),
		Currency:                   getenvDefault("CURRENCY", "ETB"),
		KafkaBrokers:               splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaPaymentEventsTopic:    getenvDefault("KAFKA_PAYMENT_EVENTS_TOPIC", "payment-events"),
		ChapaAllowUnsignedWebhooks: parseBool("CHAPA_ALLOW_UNSIGNED_WEBHOOKS", false, &errs),
		TokenCacheDefaultTTL:       parseDuration("TOKEN_CACHE_DEFAULT_TTL", 30*time.Minute, &errs),
		SweepInterval:              parseDuration("SWEEP_INTERVAL", time.Hour, &errs),
		RetryDelay:                 parseDuration("RETRY_DELAY", time.Second, &errs),
		InitiateRateWindow:         parseDuration("INITIATE_RATE_WINDOW", time.Minute, &errs),
		InitiateRateLimit:          parseInt("INITIATE_RATE_LIMIT", 10, &errs),
		RetryAttempts:              uint(parseInt("RETRY_ATTEMPTS", 3, &errs)),
		PaymentTimeout:             time.Duration(parseInt("PAYMENT_TIMEOUT_DAYS", 7, &errs)) * 24 * time.Hour,
	}

	amount, err := decimal.NewFromString(getenvDefault("FIXED_AMOUNT", "500"))
	if err != nil {
		errs = append(errs, fmt.Errorf("FIXED_AMOUNT: %w", err))
	} else if amount.IsNegative() {
		errs = append(errs, errors.New("FIXED_AMOUNT must not be negative"))
	}
	cfg.FixedAmount = amount

	for key, v := range map[string]string{
		"JWT_SECRET":              cfg.JWTSecret,
		"CHAPA_SECRET_KEY":        cfg.ChapaSecretKey,
		"PAYMENT_SERVICE_API_KEY": cfg.PaymentServiceAPIKey,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	switch cfg.StoreBackend {
	case StoreDynamoDB, StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend))
	}
	if cfg.RetryAttempts == 0 {
		errs = append(errs, errors.New("RETRY_ATTEMPTS must be at least 1"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) WebhookCallbackURL() string {
	return c.BaseURL + "/api/v1/webhook/chapa"
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func parseInt(key string, def int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid non-negative integer %q", key, raw))
		return def
	}
	return n
}

func parseBool(key string, def bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
