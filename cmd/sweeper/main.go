package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rent_payment_service/internal/infrastructure/container"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:          "sweeper",
		Short:        "Fail pending listing payments older than the configured timeout",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := container.New(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if maxAge <= 0 {
				maxAge = c.Config.PaymentTimeout
			}
			n, err := c.Payments.SweepTimeouts(ctx, maxAge)
			c.Logger.Info("timeout sweep finished", zap.Int("failed", n), zap.Duration("max_age", maxAge), zap.Error(err))
			fmt.Fprintf(cmd.OutOrStdout(), "%d payment(s) marked FAILED\n", n)
			return err
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "age after which a pending payment times out (default PAYMENT_TIMEOUT_DAYS)")
	return cmd
}
