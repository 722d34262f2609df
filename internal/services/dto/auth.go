package dto

import (
	"time"

	"relief_backend/internal/models"
)

// ProfileFields - необязательные поля профиля, общие для регистрации
type ProfileFields struct {
	Avatar                 string `json:"avatar" validate:"omitempty,max=2048"`
	ContactNumber          string `json:"contactNumber" validate:"omitempty,max=32"`
	Address                string `json:"address" validate:"omitempty,max=500"`
	EmergencyContactName   string `json:"emergencyContactName" validate:"omitempty,max=200"`
	EmergencyContactNumber string `json:"emergencyContactNumber" validate:"omitempty,max=32"`

	BloodGroup        string `json:"bloodGroup" validate:"omitempty,max=8"`
	MedicalConditions string `json:"medicalConditions" validate:"omitempty,max=2000"`
	Allergies         string `json:"allergies" validate:"omitempty,max=2000"`
	Medications       string `json:"medications" validate:"omitempty,max=2000"`

	OrganizationName      string `json:"organizationName" validate:"omitempty,max=200"`
	GovernmentID          string `json:"governmentId" validate:"omitempty,max=100"`
	NGORegistrationNumber string `json:"ngoRegistrationNumber" validate:"omitempty,max=100"`
	Skills                string `json:"skills" validate:"omitempty,max=2000"`
	Availability          string `json:"availability" validate:"omitempty,max=200"`
}

// RegisterRequest - полный payload регистрации (send-otp и signup)
type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,not-blank,max=200"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.UserRole `json:"role" validate:"required,is-signup-role"`
	ProfileFields
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OTPResponse - код в ответе никогда не возвращается
type OTPResponse struct {
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

// UserDTO - краткая информация о пользователе для сессии
type UserDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          models.UserRole `json:"role"`
	Avatar        string          `json:"avatar,omitempty"`
	Verified      bool            `json:"verified"`
	EmailVerified *time.Time      `json:"emailVerified"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Avatar:        u.Avatar,
		Verified:      u.Verified,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}
