package workers

import (
	"context"
	"time"

	"relief_backend/internal/logger"
	"relief_backend/internal/repositories"

	"gorm.io/gorm"
)

const otpCleanupWorkerName = "otp_cleanup"

type OTPCleanupWorker struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

// NewOTPCleanupWorker - grace задает, сколько код хранится после истечения
func NewOTPCleanupWorker(db *gorm.DB, userRepo repositories.UserRepository, interval, grace time.Duration) *OTPCleanupWorker {
	return &OTPCleanupWorker{
		db:       db,
		userRepo: userRepo,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

// Start запускает периодическую очистку просроченных OTP
func (w *OTPCleanupWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *OTPCleanupWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.WorkerLog(otpCleanupWorkerName, "stopped", nil)
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce очищает otp/otp_expiry у неподтвержденных пользователей, чей код истек раньше now-grace
func (w *OTPCleanupWorker) RunOnce(ctx context.Context) int64 {
	cleared, err := w.userRepo.ClearStaleOTPs(w.db.WithContext(ctx), w.now().Add(-w.grace))
	if err != nil {
		logger.WorkerLog(otpCleanupWorkerName, "clear_stale_otps", err)
		return 0
	}
	if cleared > 0 {
		logger.WorkerLog(otpCleanupWorkerName, "clear_stale_otps", nil, "cleared", cleared)
	}
	return cleared
}
