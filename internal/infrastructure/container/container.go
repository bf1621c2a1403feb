package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rent_payment_service/internal/adapter/persistence/repository"
	"rent_payment_service/internal/infrastructure/cache"
	"rent_payment_service/internal/infrastructure/config"
	"rent_payment_service/internal/infrastructure/database"
	"rent_payment_service/internal/infrastructure/events"
	"rent_payment_service/internal/infrastructure/identity"
	"rent_payment_service/internal/infrastructure/listing"
	"rent_payment_service/internal/infrastructure/logger"
	"rent_payment_service/internal/infrastructure/metrics"
	"rent_payment_service/internal/infrastructure/payments"
	"rent_payment_service/internal/infrastructure/retry"
	"rent_payment_service/internal/usecase"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container owns every long-lived dependency of the service.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Store   interfaces.IPaymentRepository
	Gateway *payments.ChapaGateway

	Identities usecase.IIdentityUseCase
	Payments   usecase.IPaymentUseCase

	closers []func() error
}

// New loads the configuration and builds the whole dependency graph.
func New(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return Build(ctx, cfg, log)
}

// Build wires the dependency graph from an already loaded configuration.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(),
	}
	c.closers = append(c.closers, func() error {
		_ = log.Sync()
		return nil
	})

	exec := retry.NewExecutor(retry.Policy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}, log)

	store, err := c.openStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = store
	if err := c.Metrics.RegisterStoreStats(store, log); err != nil {
		c.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	gateway, err := payments.NewChapaGateway(payments.ChapaConfig{
		BaseURL:       cfg.ChapaBaseURL,
		SecretKey:     cfg.ChapaSecretKey,
		WebhookSecret: cfg.ChapaWebhookSecret,
		AllowUnsigned: cfg.ChapaAllowUnsignedWebhooks,
	}, exec, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("chapa: %w", err)
	}
	c.Gateway = gateway

	validator, err := identity.NewJWTValidator(cfg.JWTSecret)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("jwt: %w", err)
	}
	directory := identity.NewUserManagementClient(identity.UserManagementConfig{
		BaseURL: cfg.UserManagementURL,
		APIKey:  cfg.PaymentServiceAPIKey,
	}, exec, log)

	var identityCache interfaces.IIdentityCache
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Warn("identity cache disabled", zap.Error(err))
	} else {
		identityCache = cache.NewRedisIdentityCache(redisClient)
		c.closers = append(c.closers, redisClient.Close)
		pingRedis(ctx, redisClient, log)
	}

	c.Identities = usecase.NewIdentityUseCase(identityCache, validator, directory, cfg.PaymentServiceAPIKey, cfg.TokenCacheDefaultTTL, log)

	notifier := listing.NewPropertyListingClient(cfg.PropertyListingServiceURL, cfg.PaymentServiceAPIKey, listing.DefaultTimeout, exec, log)

	var publisher interfaces.IPaymentEventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaPaymentEventsTopic, log)
		c.closers = append(c.closers, kafka.Close)
		publisher = kafka
	}

	c.Payments = usecase.NewPaymentUseCase(store, gateway, directory, notifier, usecase.PaymentSettings{
		FixedAmount: cfg.FixedAmount,
		Currency:    cfg.Currency,
		CallbackURL: cfg.WebhookCallbackURL(),
		ReturnURL:   cfg.FrontendRedirectURL,
	}, log,
		usecase.WithEventPublisher(publisher),
		usecase.WithMetrics(c.Metrics),
	)

	log.Info("container ready",
		zap.String("store", cfg.StoreBackend),
		zap.Bool("identity_cache", identityCache != nil),
		zap.Bool("kafka", len(cfg.KafkaBrokers) > 0),
	)
	return c, nil
}

func (c *Container) openStore(ctx context.Context) (interfaces.IPaymentRepository, error) {
	switch c.Config.StoreBackend {
	case config.StorePostgres:
		db, err := database.ConnectPostgres(ctx, c.Config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
		return openPostgres(ctx, db)
	case config.StoreMemory:
		c.Logger.Warn("using in-memory payment store; data is lost on restart")
		return repository.NewPaymentMemoryRepository(), nil
	default:
		opts := database.DynamoDBOptions{
			Region:          c.Config.AWSRegion,
			Endpoint:        c.Config.DynamoDBEndpoint,
			AccessKeyID:     c.Config.AWSAccessKeyID,
			SecretAccessKey: c.Config.AWSSecretAccessKey,
		}
		ddb, err := database.ConnectDynamoDB(ctx, opts)
		if err != nil {
			return nil, err
		}
		if opts.Endpoint != "" {
			if err := database.EnsurePaymentsTable(ctx, ddb, c.Config.PaymentsTable, repository.PaymentsStatusIndex); err != nil {
				return nil, fmt.Errorf("dynamodb: %w", err)
			}
		}
		return repository.NewPaymentDynamoRepository(ddb, c.Config.PaymentsTable), nil
	}
}

func openPostgres(ctx context.Context, db *sql.DB) (interfaces.IPaymentRepository, error) {
	repo := repository.NewPaymentPostgresRepository(db)
	if err := repo.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return repo, nil
}

func pingRedis(ctx context.Context, client *redis.Client, log *zap.Logger) {
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable; identities resolve live until it recovers", zap.Error(err))
	}
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
