package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type TimeoutSweeper interface {
	SweepTimeouts(ctx context.Context, maxAge time.Duration) (int, error)
}

// SweepScheduler fails stale pending payments on a fixed interval.
type SweepScheduler struct {
	sweeper  TimeoutSweeper
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
}

func NewSweepScheduler(sweeper TimeoutSweeper, interval, maxAge time.Duration, logger *zap.Logger) *SweepScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepScheduler{
		sweeper:  sweeper,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.Named("sweep.scheduler"),
	}
}

// Run sweeps once immediately, then every interval until ctx is done.
// A non-positive interval disables the scheduler.
func (s *SweepScheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("timeout sweep disabled")
		return
	}

	s.logger.Info("timeout sweep started", zap.Duration("interval", s.interval), zap.Duration("max_age", s.maxAge))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timeout sweep stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SweepScheduler) runOnce(ctx context.Context) {
	n, err := s.sweeper.SweepTimeouts(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("timeout sweep finished with errors", zap.Int("failed", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("timed out payments failed", zap.Int("failed", n))
	}
}
