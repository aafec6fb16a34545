package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/ratelimit"
)

const defaultSweepInterval = 5 * time.Minute

// RateLimitSweeper periodically deletes attempt records older than the longest
// rate limit window. Expired records never affect a decision, so sweeping only
// bounds storage.
type RateLimitSweeper struct {
	limiter   *ratelimit.Limiter
	maxWindow time.Duration
	interval  time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewRateLimitSweeper creates a sweeper. A non-positive interval falls back to five minutes.
func NewRateLimitSweeper(limiter *ratelimit.Limiter, maxWindow, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *RateLimitSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitSweeper{
		limiter:   limiter,
		maxWindow: maxWindow,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
// Sweep failures are logged and retried on the next tick.
func (s *RateLimitSweeper) Run(ctx context.Context) error {
	if s == nil || s.limiter == nil {
		return errors.New("rate limit sweeper is not configured")
	}
	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs one purge and returns the number of records removed.
func (s *RateLimitSweeper) SweepOnce(ctx context.Context) int64 {
	removed, err := s.limiter.Purge(ctx, s.maxWindow)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("rate limit sweep failed", zap.Error(err))
		}
		return 0
	}
	s.metrics.RecordPurge(removed)
	if removed > 0 {
		s.logger.Debug("rate limit attempts purged", zap.Int64("removed", removed))
	}
	return removed
}
