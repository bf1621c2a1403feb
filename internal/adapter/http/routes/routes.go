package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rent_payment_service/internal/adapter/http/handlers"
	"rent_payment_service/internal/adapter/http/middleware"
	"rent_payment_service/internal/infrastructure/container"
	"rent_payment_service/internal/infrastructure/metrics"
	"rent_payment_service/internal/infrastructure/scheduler"
	"rent_payment_service/internal/usecase"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const (
	APIPrefix       = "/api/v1"
	shutdownTimeout = 15 * time.Second
)

// Dependencies is what the HTTP layer needs from the container.
type Dependencies struct {
	Payments   usecase.IPaymentUseCase
	Identities usecase.IIdentityUseCase
	Store      handlers.StorePinger
	Gateway    handlers.BankLister
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	InitiateRateLimit  int
	InitiateRateWindow time.Duration
}

func DependenciesFrom(c *container.Container) Dependencies {
	return Dependencies{
		Payments:           c.Payments,
		Identities:         c.Identities,
		Store:              c.Store,
		Gateway:            c.Gateway,
		Metrics:            c.Metrics,
		Logger:             c.Logger,
		InitiateRateLimit:  c.Config.InitiateRateLimit,
		InitiateRateWindow: c.Config.InitiateRateWindow,
	}
}

// NewRouter builds the gin engine with every public route mounted.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router := gin.New()
	var observer middleware.HTTPObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}
	router.Use(middleware.Recovery(deps.Logger), middleware.RequestLogger(deps.Logger, observer))

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group(APIPrefix)
	addPaymentRoutes(v1, deps, handlers.NewPaymentHandler(deps.Payments, deps.Logger))
	addWebhookRoutes(v1, handlers.NewWebhookHandler(deps.Payments, deps.Logger))
	addHealthRoutes(v1, handlers.NewHealthHandler(deps.Store, deps.Gateway, deps.Logger))

	return router
}

// Run serves HTTP and the timeout sweep until ctx is cancelled, then drains
// in-flight requests.
func Run(ctx context.Context, c *container.Container) error {
	log := c.Logger.Named("server")
	srv := &http.Server{
		Addr:              ":" + c.Config.Port,
		Handler:           NewRouter(DependenciesFrom(c)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweeper := scheduler.NewSweepScheduler(c.Payments, c.Config.SweepInterval, c.Config.PaymentTimeout, c.Logger)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(sweepCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serveErr:
		log.Error("server stopped", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	stopSweep()
	<-sweepDone
	return runErr
}
