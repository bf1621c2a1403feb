package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	retrygo "github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy is a bounded fixed-delay retry policy. No jitter, no backoff growth.
type Policy struct {
	Attempts uint
	Delay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// StatusError is returned by HTTP clients for non-2xx answers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable accepts transport failures, per-attempt timeouts and 5xx answers.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Executor runs outbound calls under a Policy.
type Executor struct {
	policy Policy
	logger *zap.Logger
}

func NewExecutor(policy Policy, logger *zap.Logger) *Executor {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{policy: policy, logger: logger.Named("retry")}
}

func (e *Executor) Policy() Policy {
	return e.policy
}

// Do retries fn while IsRetryable reports true.
func (e *Executor) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return e.DoIf(ctx, operation, IsRetryable, fn)
}

// DoIf retries fn while retryable reports true. The final error is returned unchanged.
func (e *Executor) DoIf(ctx context.Context, operation string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	return retrygo.Do(
		func() error { return fn(ctx) },
		retrygo.Context(ctx),
		retrygo.Attempts(e.policy.Attempts),
		retrygo.Delay(e.policy.Delay),
		retrygo.DelayType(retrygo.FixedDelay),
		retrygo.RetryIf(retryable),
		retrygo.LastErrorOnly(true),
		retrygo.OnRetry(func(n uint, err error) {
			e.logger.Warn("attempt failed",
				zap.String("operation", operation),
				zap.Uint("attempt", n+1),
				zap.Uint("max_attempts", e.policy.Attempts),
				zap.Error(err),
			)
		}),
	)
}
