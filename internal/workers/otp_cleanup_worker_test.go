package workers

import (
	"context"
	"testing"
	"time"

	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPCleanupWorker_RunOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewUserRepository()
	now := time.Now()

	stale := &models.User{Name: "Stale", Email: "stale@test.com", PasswordHash: "x", Role: models.UserRoleCommunity}
	fresh := &models.User{Name: "Fresh", Email: "fresh@test.com", PasswordHash: "x", Role: models.UserRoleCommunity}
	require.NoError(t, repo.Create(db, stale))
	require.NoError(t, repo.Create(db, fresh))
	require.NoError(t, repo.SetOTP(db, stale.ID, "123456", now.Add(-3*time.Hour)))
	require.NoError(t, repo.SetOTP(db, fresh.ID, "654321", now.Add(5*time.Minute)))

	worker := NewOTPCleanupWorker(db, repo, time.Minute, time.Hour)
	worker.now = func() time.Time { return now }

	assert.Equal(t, int64(1), worker.RunOnce(context.Background()))

	got, err := repo.FindByID(db, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OTP)
	assert.Nil(t, got.OTPExpiry)

	got, err = repo.FindByID(db, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OTP)
	assert.Equal(t, "654321", *got.OTP)

	// повторный прогон ничего не трогает
	assert.Equal(t, int64(0), worker.RunOnce(context.Background()))
}

type countingCleaner struct {
	calls chan time.Duration
}

func (c *countingCleaner) Cleanup(idle time.Duration) {
	select {
	case c.calls <- idle:
	default:
	}
}

func TestLimiterCleanupWorker_CallsCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaner := &countingCleaner{calls: make(chan time.Duration, 4)}
	NewLimiterCleanupWorker(cleaner, 10*time.Millisecond, time.Hour).Start(ctx)

	select {
	case idle := <-cleaner.calls:
		assert.Equal(t, time.Hour, idle)
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup was not called")
	}
}
