package models

import "time"

type User struct {
	BaseModel
	Name         string   `gorm:"not null" json:"name"`
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(32);not null;index" json:"role"`

	// Verified - флаг проверки респондента администратором (vetting)
	Verified      bool       `gorm:"not null;default:false" json:"verified"`
	EmailVerified *time.Time `json:"emailVerified"`
	OTP           *string    `gorm:"column:otp" json:"-"`
	OTPExpiry     *time.Time `gorm:"column:otp_expiry" json:"-"`

	Avatar        string `json:"avatar,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
	Address       string `json:"address,omitempty"`

	EmergencyContactName   string `json:"emergencyContactName,omitempty"`
	EmergencyContactNumber string `json:"emergencyContactNumber,omitempty"`

	// Медицинские поля заполняет только COMMUNITY_USER
	BloodGroup        string `json:"bloodGroup,omitempty"`
	MedicalConditions string `json:"medicalConditions,omitempty"`
	Allergies         string `json:"allergies,omitempty"`
	Medications       string `json:"medications,omitempty"`

	// Поля респондентов
	OrganizationName   string `json:"organizationName,omitempty"`
	GovernmentID       string `json:"governmentId,omitempty"`
	NGORegistrationNum string `gorm:"column:ngo_registration_number" json:"ngoRegistrationNumber,omitempty"`
	Skills             string `json:"skills,omitempty"`
	Availability       string `json:"availability,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) IsEmailVerified() bool {
	return u.EmailVerified != nil
}
