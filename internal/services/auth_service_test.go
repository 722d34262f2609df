package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"relief_backend/internal/auth"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/internal/testutil"
	"relief_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(provider *testutil.RecordingEmailProvider) *AuthServiceImpl {
	svc := NewAuthService(
		repositories.NewUserRepository(),
		provider,
		auth.NewTokenService("test_secret", time.Hour),
		10*time.Minute,
	)
	return svc.(*AuthServiceImpl)
}

func registerRequest(email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: "password123",
		Role:     models.UserRoleCommunity,
	}
}

func TestSendOTP_CreatesPendingUser(t *testing.T) {
	// 1. Подготовка
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)

	// 2. Действие
	resp, err := svc.SendOTP(context.Background(), db, registerRequest("  New.User@Test.com "))

	// 3. Проверка
	require.NoError(t, err)
	assert.Equal(t, "new.user@test.com", resp.Email)

	user, err := repositories.NewUserRepository().FindByEmail(db, "new.user@test.com")
	require.NoError(t, err)
	assert.Nil(t, user.EmailVerified)
	require.NotNil(t, user.OTP)
	assert.Len(t, *user.OTP, 6)

	code, err := provider.LastOTP("new.user@test.com")
	require.NoError(t, err)
	assert.Equal(t, *user.OTP, code)
}

func TestSendOTP_VerifiedEmailConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "Existing", "taken@test.com", "password123", models.UserRoleCommunity, false)
	svc := newTestAuthService(testutil.NewRecordingEmailProvider())

	_, err := svc.SendOTP(context.Background(), db, registerRequest("taken@test.com"))

	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestSendOTP_EmailFailureRemovesCreatedUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	provider.SetFail(true)
	svc := newTestAuthService(provider)

	_, err := svc.SendOTP(context.Background(), db, registerRequest("fail@test.com"))

	assert.ErrorIs(t, err, apperrors.ErrOTPSendFailed)
	_, err = repositories.NewUserRepository().FindByEmail(db, "fail@test.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound, "Строка, созданная запросом, должна быть удалена")
}

func TestSendOTP_EmailFailureRestoresPendingUser(t *testing.T) {
	// 1. Подготовка: первая регистрация успешна
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, db, registerRequest("pending@test.com"))
	require.NoError(t, err)
	firstCode, err := provider.LastOTP("pending@test.com")
	require.NoError(t, err)

	// 2. Действие: повтор с другим именем, отправка падает
	provider.SetFail(true)
	req := registerRequest("pending@test.com")
	req.Name = "Another Name"
	_, err = svc.SendOTP(ctx, db, req)

	// 3. Проверка
	assert.ErrorIs(t, err, apperrors.ErrOTPSendFailed)
	user, err := repositories.NewUserRepository().FindByEmail(db, "pending@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Test User", user.Name)
	require.NotNil(t, user.OTP)
	assert.Equal(t, firstCode, *user.OTP)
}

func TestSignup_RejectsAnyExistingEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestAuthService(testutil.NewRecordingEmailProvider())
	ctx := context.Background()

	_, err := svc.Signup(ctx, db, registerRequest("once@test.com"))
	require.NoError(t, err)

	_, err = svc.Signup(ctx, db, registerRequest("once@test.com"))
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestVerifyOTP_SucceedsOnlyOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, db, registerRequest("once@test.com"))
	require.NoError(t, err)
	code, err := provider.LastOTP("once@test.com")
	require.NoError(t, err)

	user, err := svc.VerifyOTP(ctx, db, &dto.VerifyOTPRequest{Email: "once@test.com", OTP: code})
	require.NoError(t, err)
	assert.NotNil(t, user.EmailVerified)

	_, err = svc.VerifyOTP(ctx, db, &dto.VerifyOTPRequest{Email: "once@test.com", OTP: code})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyVerified)

	stored, err := repositories.NewUserRepository().FindByEmail(db, "once@test.com")
	require.NoError(t, err)
	assert.Nil(t, stored.OTP)
	assert.Nil(t, stored.OTPExpiry)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestAuthService(testutil.NewRecordingEmailProvider())
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, db, registerRequest("wrong@test.com"))
	require.NoError(t, err)

	// Коды генерируются в диапазоне 100000-999999
	_, err = svc.VerifyOTP(ctx, db, &dto.VerifyOTPRequest{Email: "wrong@test.com", OTP: "000000"})
	assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, db, registerRequest("late@test.com"))
	require.NoError(t, err)
	code, err := provider.LastOTP("late@test.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, err = svc.VerifyOTP(ctx, db, &dto.VerifyOTPRequest{Email: "late@test.com", OTP: code})
	assert.ErrorIs(t, err, apperrors.ErrOTPExpired)
}

func TestVerifyOTP_UnknownEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestAuthService(testutil.NewRecordingEmailProvider())

	_, err := svc.VerifyOTP(context.Background(), db, &dto.VerifyOTPRequest{Email: "ghost@test.com", OTP: "123456"})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestResendOTP_ReplacesCode(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, db, registerRequest("resend@test.com"))
	require.NoError(t, err)

	_, err = svc.ResendOTP(ctx, db, "resend@test.com")
	require.NoError(t, err)

	assert.Len(t, provider.SentTo("resend@test.com", "otp"), 2)
	code, err := provider.LastOTP("resend@test.com")
	require.NoError(t, err)

	stored, err := repositories.NewUserRepository().FindByEmail(db, "resend@test.com")
	require.NoError(t, err)
	require.NotNil(t, stored.OTP)
	assert.Equal(t, code, *stored.OTP)
}

func TestResendOTP_Failures(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)
	ctx := context.Background()
	testutil.CreateUser(t, db, "Verified", "done@test.com", "password123", models.UserRoleCommunity, false)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.ResendOTP(ctx, db, "ghost@test.com")
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, appErr.HTTPCode)
	})

	t.Run("already verified", func(t *testing.T) {
		_, err := svc.ResendOTP(ctx, db, "done@test.com")
		require.ErrorIs(t, err, apperrors.ErrAlreadyVerified)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPCode)
	})

	assert.Empty(t, provider.SentTo("ghost@test.com", "otp"))
	assert.Empty(t, provider.SentTo("done@test.com", "otp"))
}

func TestVerifyOTP_CodeClearedByCleanup(t *testing.T) {
	db := testutil.NewTestDB(t)
	provider := testutil.NewRecordingEmailProvider()
	svc := newTestAuthService(provider)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, db, registerRequest("stale@test.com"))
	require.NoError(t, err)
	code, err := provider.LastOTP("stale@test.com")
	require.NoError(t, err)

	// так же код снимает воркер очистки после истечения срока
	cleared, err := repositories.NewUserRepository().ClearStaleOTPs(db, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared)

	_, err = svc.VerifyOTP(ctx, db, &dto.VerifyOTPRequest{Email: "stale@test.com", OTP: code})
	assert.ErrorIs(t, err, apperrors.ErrOTPMissing)

	// новый код снова делает проверку возможной
	_, err = svc.ResendOTP(ctx, db, "stale@test.com")
	require.NoError(t, err)
	code, err = provider.LastOTP("stale@test.com")
	require.NoError(t, err)
	_, err = svc.VerifyOTP(ctx, db, &dto.VerifyOTPRequest{Email: "stale@test.com", OTP: code})
	assert.NoError(t, err)
}

func TestSignIn(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestAuthService(testutil.NewRecordingEmailProvider())
	ctx := context.Background()

	testutil.CreateUser(t, db, "Verified", "ok@test.com", "password123", models.UserRoleVolunteer, false)
	_, err := svc.SendOTP(ctx, db, registerRequest("pending@test.com"))
	require.NoError(t, err)

	t.Run("verified email gets session", func(t *testing.T) {
		resp, err := svc.SignIn(ctx, db, &dto.SignInRequest{Email: "ok@test.com", Password: "password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, models.UserRoleVolunteer, resp.User.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, db, &dto.SignInRequest{Email: "ok@test.com", Password: "nope-nope"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unverified email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, db, &dto.SignInRequest{Email: "pending@test.com", Password: "password123"})
		assert.ErrorIs(t, err, apperrors.ErrEmailNotVerified)
	})
}

func TestSeedFirstAdmin_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestAuthService(testutil.NewRecordingEmailProvider())
	ctx := context.Background()

	require.NoError(t, svc.SeedFirstAdmin(ctx, db, "admin@test.com", "admin-password"))
	require.NoError(t, svc.SeedFirstAdmin(ctx, db, "admin@test.com", "admin-password"))

	count, err := repositories.NewUserRepository().CountByRole(db, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	resp, err := svc.SignIn(ctx, db, &dto.SignInRequest{Email: "admin@test.com", Password: "admin-password"})
	require.NoError(t, err)
	assert.True(t, resp.User.Verified)
}
