package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"relief_backend/internal/auth"
	"relief_backend/internal/email"
	"relief_backend/internal/logger"
	"relief_backend/internal/metrics"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type AuthService interface {
	// OTP
	SendOTP(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.OTPResponse, error)
	Signup(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.OTPResponse, error)
	ResendOTP(ctx context.Context, db *gorm.DB, email string) (*dto.OTPResponse, error)
	VerifyOTP(ctx context.Context, db *gorm.DB, req *dto.VerifyOTPRequest) (*dto.UserDTO, error)

	// Сессия
	SignIn(ctx context.Context, db *gorm.DB, req *dto.SignInRequest) (*dto.SessionResponse, error)

	SeedFirstAdmin(ctx context.Context, db *gorm.DB, email, password string) error
}

type AuthServiceImpl struct {
	userRepo      repositories.UserRepository
	emailProvider email.Provider
	tokens        *auth.TokenService
	otpTTL        time.Duration
	now           func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	emailProvider email.Provider,
	tokens *auth.TokenService,
	otpTTL time.Duration,
) AuthService {
	return &AuthServiceImpl{
		userRepo:      userRepo,
		emailProvider: emailProvider,
		tokens:        tokens,
		otpTTL:        otpTTL,
		now:           time.Now,
	}
}

// SendOTP - upsert неподтвержденного пользователя и отправка кода.
// Подтвержденный email дает 409.
func (s *AuthServiceImpl) SendOTP(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.OTPResponse, error) {
	existing, err := s.userRepo.FindByEmail(db, req.Email)
	switch {
	case err == nil && existing.IsEmailVerified():
		return nil, apperrors.ErrEmailAlreadyExists
	case err == nil:
		return s.registerPending(ctx, db, req, existing)
	case errors.Is(err, repositories.ErrUserNotFound):
		return s.registerPending(ctx, db, req, nil)
	default:
		return nil, apperrors.InternalError(err)
	}
}

// Signup - строгий вариант: любой существующий пользователь с этим email дает 409
func (s *AuthServiceImpl) Signup(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.OTPResponse, error) {
	_, err := s.userRepo.FindByEmail(db, req.Email)
	if err == nil {
		return nil, apperrors.ErrEmailAlreadyExists
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.InternalError(err)
	}
	return s.registerPending(ctx, db, req, nil)
}

// registerPending создает (existing == nil) или перезаписывает ожидающую учетку и шлет OTP.
// При ошибке отправки строка, созданная этим запросом, удаляется, а существующая возвращается
// в прежнее состояние.
func (s *AuthServiceImpl) registerPending(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest, existing *models.User) (*dto.OTPResponse, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	code, err := generateOTP()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	expiry := s.now().Add(s.otpTTL)

	var user *models.User
	var snapshot models.User
	created := existing == nil

	if created {
		user = &models.User{}
	} else {
		snapshot = *existing
		user = existing
	}

	user.Name = strings.TrimSpace(req.Name)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.PasswordHash = hash
	user.Role = req.Role
	user.OTP = &code
	user.OTPExpiry = &expiry
	applyProfileFields(user, &req.ProfileFields)

	if created {
		if err := s.userRepo.Create(db, user); err != nil {
			if errors.Is(err, repositories.ErrUserAlreadyExists) {
				return nil, apperrors.ErrEmailAlreadyExists
			}
			return nil, apperrors.InternalError(err)
		}
	} else if err := s.userRepo.Save(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.sendOTPEmail(ctx, user, code); err != nil {
		logger.CtxWithError(ctx, "OTP email failed, rolling back registration", err, "user_id", user.ID, "created", created)
		s.compensate(ctx, db, user.ID, created, &snapshot)
		return nil, apperrors.ErrOTPSendFailed.WithError(err)
	}

	logger.CtxInfo(ctx, "OTP issued", "user_id", user.ID, "role", user.Role)
	return &dto.OTPResponse{
		Message:   "Verification code sent",
		Email:     user.Email,
		ExpiresAt: expiry,
	}, nil
}

func (s *AuthServiceImpl) compensate(ctx context.Context, db *gorm.DB, userID string, created bool, snapshot *models.User) {
	var err error
	if created {
		err = s.userRepo.HardDelete(db, userID)
	} else {
		err = s.userRepo.Save(db, snapshot)
	}
	if err != nil {
		logger.CtxWithError(ctx, "failed to compensate registration", err, "user_id", userID)
	}
}

func (s *AuthServiceImpl) ResendOTP(ctx context.Context, db *gorm.DB, emailAddr string) (*dto.OTPResponse, error) {
	user, err := s.userRepo.FindByEmail(db, emailAddr)
	if err != nil {
		return nil, handleUserError(err)
	}
	if user.IsEmailVerified() {
		return nil, apperrors.ErrAlreadyVerified
	}

	code, err := generateOTP()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	expiry := s.now().Add(s.otpTTL)

	if err := s.userRepo.SetOTP(db, user.ID, code, expiry); err != nil {
		return nil, handleUserError(err)
	}

	if err := s.sendOTPEmail(ctx, user, code); err != nil {
		return nil, apperrors.ErrOTPSendFailed.WithError(err)
	}

	return &dto.OTPResponse{
		Message:   "Verification code sent",
		Email:     user.Email,
		ExpiresAt: expiry,
	}, nil
}

// VerifyOTP проверяет код. Очистка условная по коду, поэтому из двух
// одновременных проверок успешна только одна.
func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, db *gorm.DB, req *dto.VerifyOTPRequest) (result *dto.UserDTO, err error) {
	defer func() {
		metrics.OTPVerificationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		return nil, handleUserError(err)
	}

	if user.IsEmailVerified() {
		return nil, apperrors.ErrAlreadyVerified
	}
	if user.OTP == nil || user.OTPExpiry == nil {
		return nil, apperrors.ErrOTPMissing
	}

	now := s.now()
	if now.After(*user.OTPExpiry) {
		return nil, apperrors.ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(req.OTP)) != 1 {
		return nil, apperrors.ErrOTPInvalid
	}

	if err := s.userRepo.ConfirmEmail(db, user.ID, req.OTP, now); err != nil {
		if !errors.Is(err, repositories.ErrOTPChanged) {
			return nil, apperrors.InternalError(err)
		}
		// Проиграли гонку: либо уже подтвердили, либо код перевыпущен
		fresh, findErr := s.userRepo.FindByID(db, user.ID)
		if findErr == nil && fresh.IsEmailVerified() {
			return nil, apperrors.ErrAlreadyVerified
		}
		return nil, apperrors.ErrOTPInvalid
	}

	user.EmailVerified = &now
	user.OTP = nil
	user.OTPExpiry = nil

	logger.CtxInfo(ctx, "email verified", "user_id", user.ID)
	userDTO := dto.NewUserDTO(user)
	return &userDTO, nil
}

func (s *AuthServiceImpl) SignIn(ctx context.Context, db *gorm.DB, req *dto.SignInRequest) (*dto.SessionResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	// Администраторы входят без подтверждения email
	if !user.IsAdmin() && !user.IsEmailVerified() {
		return nil, apperrors.ErrEmailNotVerified
	}

	token, expiresAt, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "user signed in", "user_id", user.ID, "role", user.Role)
	return &dto.SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserDTO(user),
	}, nil
}

// SeedFirstAdmin создает администратора, если его еще нет. Повторный вызов ничего не меняет.
func (s *AuthServiceImpl) SeedFirstAdmin(ctx context.Context, db *gorm.DB, emailAddr, password string) error {
	if emailAddr == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.FindByEmail(db, emailAddr)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := s.now()
	admin := &models.User{
		Name:          "Administrator",
		Email:         emailAddr,
		PasswordHash:  hash,
		Role:          models.UserRoleAdmin,
		Verified:      true,
		EmailVerified: &now,
	}
	if err := s.userRepo.Create(db, admin); err != nil {
		return err
	}

	logger.CtxInfo(ctx, "first admin seeded", "user_id", admin.ID, "email", admin.Email)
	return nil
}

func (s *AuthServiceImpl) sendOTPEmail(ctx context.Context, user *models.User, code string) error {
	err := s.emailProvider.SendTemplate(ctx, []string{user.Email}, "Your verification code", email.TemplateOTP, email.TemplateData{
		"Name":             user.Name,
		"OTP":              code,
		"ExpiresInMinutes": int(s.otpTTL.Minutes()),
	})
	metrics.OTPSentTotal.WithLabelValues(metrics.Result(err)).Inc()
	metrics.EmailsTotal.WithLabelValues(email.TemplateOTP, metrics.Result(err)).Inc()
	return err
}

// generateOTP - 6 цифр в диапазоне [100000, 999999]
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func applyProfileFields(u *models.User, p *dto.ProfileFields) {
	u.Avatar = p.Avatar
	u.ContactNumber = p.ContactNumber
	u.Address = p.Address
	u.EmergencyContactName = p.EmergencyContactName
	u.EmergencyContactNumber = p.EmergencyContactNumber

	// Медицинские поля хранятся только у жителей
	if u.Role == models.UserRoleCommunity {
		u.BloodGroup = p.BloodGroup
		u.MedicalConditions = p.MedicalConditions
		u.Allergies = p.Allergies
		u.Medications = p.Medications
	}

	if u.Role.IsResponder() {
		u.OrganizationName = p.OrganizationName
		u.GovernmentID = p.GovernmentID
		u.NGORegistrationNum = p.NGORegistrationNumber
		u.Skills = p.Skills
		u.Availability = p.Availability
	}
}

func handleUserError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	return apperrors.InternalError(err)
}
