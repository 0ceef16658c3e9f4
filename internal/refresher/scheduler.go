package refresher

import (
	"context"
	"time"

	"stocksearch/internal/stock"

	"go.uber.org/zap"
)

// Loader refreshes the cache from the network.
type Loader interface {
	GetStocks(ctx context.Context) ([]stock.Stock, error)
}

// Scheduler keeps the cache warm by reloading stocks at a fixed interval.
type Scheduler struct {
	loader   Loader
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewScheduler(loader Loader, interval, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		loader:   loader,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Enabled reports whether a positive interval was configured.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Run loads once at startup and then every interval until ctx is done.
// It returns immediately when the scheduler is disabled.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.Enabled() {
		return
	}

	// Run immediately once at startup
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	stocks, err := s.loader.GetStocks(ctx)
	if err != nil {
		s.logger.Warn("background refresh failed", zap.Error(err))
		return
	}
	s.logger.Info("background refresh done",
		zap.Int("count", len(stocks)),
		zap.Duration("took", time.Since(started)),
	)
}
