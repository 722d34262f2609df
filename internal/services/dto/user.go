package dto

import "relief_backend/internal/models"

// UpdateProfileRequest - nil означает "не менять". role, email и verified здесь не меняются.
type UpdateProfileRequest struct {
	Name                   *string `json:"name" validate:"omitempty,not-blank,max=200"`
	Avatar                 *string `json:"avatar" validate:"omitempty,max=2048"`
	ContactNumber          *string `json:"contactNumber" validate:"omitempty,max=32"`
	Address                *string `json:"address" validate:"omitempty,max=500"`
	EmergencyContactName   *string `json:"emergencyContactName" validate:"omitempty,max=200"`
	EmergencyContactNumber *string `json:"emergencyContactNumber" validate:"omitempty,max=32"`

	BloodGroup        *string `json:"bloodGroup" validate:"omitempty,max=8"`
	MedicalConditions *string `json:"medicalConditions" validate:"omitempty,max=2000"`
	Allergies         *string `json:"allergies" validate:"omitempty,max=2000"`
	Medications       *string `json:"medications" validate:"omitempty,max=2000"`

	OrganizationName      *string `json:"organizationName" validate:"omitempty,max=200"`
	GovernmentID          *string `json:"governmentId" validate:"omitempty,max=100"`
	NGORegistrationNumber *string `json:"ngoRegistrationNumber" validate:"omitempty,max=100"`
	Skills                *string `json:"skills" validate:"omitempty,max=2000"`
	Availability          *string `json:"availability" validate:"omitempty,max=200"`
}

type UserListQuery struct {
	Role     string `form:"role" validate:"omitempty,is-user-role"`
	Verified *bool  `form:"verified"`
}

type UserListResponse struct {
	Users      []models.User `json:"users"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

type VetRequest struct {
	Decision string `json:"decision" validate:"required,is-vet-decision"`
}

// Значения status в ответе vetting
const (
	VetStatusApproved = "approved"
	VetStatusDeclined = "declined"
	VetStatusRevoked  = "revoked"
)

type VetResponse struct {
	UserID   string `json:"userId"`
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}
