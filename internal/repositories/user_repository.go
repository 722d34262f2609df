package repositories

import (
	"errors"
	"strings"
	"time"

	"relief_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrOTPChanged - условное обновление не нашло строку с ожидаемым кодом
	ErrOTPChanged = errors.New("otp changed concurrently")
)

type UserRepository interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	Create(db *gorm.DB, user *models.User) error
	Save(db *gorm.DB, user *models.User) error
	HardDelete(db *gorm.DB, id string) error

	// OTP
	SetOTP(db *gorm.DB, userID, code string, expiry time.Time) error
	ConfirmEmail(db *gorm.DB, userID, code string, at time.Time) error
	ClearStaleOTPs(db *gorm.DB, before time.Time) (int64, error)

	// Профиль и vetting
	UpdateProfile(db *gorm.DB, userID string, fields map[string]interface{}) error
	SetVerified(db *gorm.DB, userID string, verified bool) error

	// Admin
	FindWithFilter(db *gorm.DB, filter UserFilter) ([]models.User, int64, error)
	CountPendingVetting(db *gorm.DB) (int64, error)
	CountByRole(db *gorm.DB, role models.UserRole) (int64, error)
}

type UserFilter struct {
	Role     models.UserRole
	Verified *bool
	Page     int
	PageSize int
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	user.Email = normalizeEmail(user.Email)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserAlreadyExists
	}
	return db.Create(user).Error
}

// Save перезаписывает все поля строки, в том числе нулевые
func (r *UserRepositoryImpl) Save(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

// HardDelete используется только для отката регистрации при неудачной отправке OTP
func (r *UserRepositoryImpl) HardDelete(db *gorm.DB, id string) error {
	result := db.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) SetOTP(db *gorm.DB, userID, code string, expiry time.Time) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"otp":        code,
		"otp_expiry": expiry,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConfirmEmail проставляет email_verified и очищает OTP, только если в строке
// все еще лежит тот же код и email не подтвержден.
func (r *UserRepositoryImpl) ConfirmEmail(db *gorm.DB, userID, code string, at time.Time) error {
	result := db.Model(&models.User{}).
		Where("id = ? AND otp = ? AND email_verified IS NULL", userID, code).
		Updates(map[string]interface{}{
			"email_verified": at,
			"otp":            nil,
			"otp_expiry":     nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOTPChanged
	}
	return nil
}

// ClearStaleOTPs очищает просроченные коды у неподтвержденных пользователей
func (r *UserRepositoryImpl) ClearStaleOTPs(db *gorm.DB, before time.Time) (int64, error) {
	result := db.Model(&models.User{}).
		Where("email_verified IS NULL AND otp IS NOT NULL AND otp_expiry < ?", before).
		Updates(map[string]interface{}{
			"otp":        nil,
			"otp_expiry": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *UserRepositoryImpl) UpdateProfile(db *gorm.DB, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) SetVerified(db *gorm.DB, userID string, verified bool) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Update("verified", verified)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) FindWithFilter(db *gorm.DB, filter UserFilter) ([]models.User, int64, error) {
	var users []models.User
	query := db.Model(&models.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Verified != nil {
		query = query.Where("verified = ?", *filter.Verified)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&users).Error
	return users, total, err
}

// CountPendingVetting - респонденты, ожидающие проверки администратором
func (r *UserRepositoryImpl) CountPendingVetting(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).
		Where("role IN ? AND verified = ?", models.ResponderRoles, false).
		Count(&count).Error
	return count, err
}

func (r *UserRepositoryImpl) CountByRole(db *gorm.DB, role models.UserRole) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
