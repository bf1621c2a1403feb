package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "rent_payment_service/docs"
	"rent_payment_service/internal/adapter/http/routes"
	"rent_payment_service/internal/infrastructure/container"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

// @title           Listing Payment Service API
// @version         1.0
// @description     Collects property listing fees through Chapa and reports outcomes to the listing service.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKey
// @in header
// @name X-API-Key
// @description Internal service API key.

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx)
	if err != nil {
		log.Fatalf("Failed to startup the application: %v", err)
	}
	defer c.Close()

	if err := routes.Run(ctx, c); err != nil {
		c.Logger.Error("server exited", zap.Error(err))
	}
}
