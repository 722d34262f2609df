package workers

import (
	"context"
	"time"

	"relief_backend/internal/logger"
)

// Cleaner - лимитер, которому нужна периодическая чистка ключей (in-memory)
type Cleaner interface {
	Cleanup(idle time.Duration)
}

type LimiterCleanupWorker struct {
	limiter  Cleaner
	interval time.Duration
	idle     time.Duration
}

func NewLimiterCleanupWorker(limiter Cleaner, interval, idle time.Duration) *LimiterCleanupWorker {
	return &LimiterCleanupWorker{limiter: limiter, interval: interval, idle: idle}
}

func (w *LimiterCleanupWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.WorkerLog("limiter_cleanup", "stopped", nil)
				return
			case <-ticker.C:
				w.limiter.Cleanup(w.idle)
			}
		}
	}()
}
