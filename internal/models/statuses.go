package models

import "strings"

type UserRole string
type IncidentType string
type IncidentStatus string
type AllocationStatus string
type ResponseType string
type NotificationType string

const (
	UserRoleCommunity  UserRole = "COMMUNITY_USER"
	UserRoleVolunteer  UserRole = "VOLUNTEER"
	UserRoleNGO        UserRole = "NGO"
	UserRoleGovernment UserRole = "GOVERNMENT_AGENCY"
	UserRoleAdmin      UserRole = "ADMIN"

	IncidentTypeFire           IncidentType = "FIRE"
	IncidentTypeFlood          IncidentType = "FLOOD"
	IncidentTypeEarthquake     IncidentType = "EARTHQUAKE"
	IncidentTypeLandslide      IncidentType = "LANDSLIDE"
	IncidentTypeCyclone        IncidentType = "CYCLONE"
	IncidentTypeTsunami        IncidentType = "TSUNAMI"
	IncidentTypeDrought        IncidentType = "DROUGHT"
	IncidentTypeMedical        IncidentType = "MEDICAL"
	IncidentTypeAccident       IncidentType = "ACCIDENT"
	IncidentTypeInfrastructure IncidentType = "INFRASTRUCTURE"
	IncidentTypeOther          IncidentType = "OTHER"

	IncidentStatusPending    IncidentStatus = "PENDING"
	IncidentStatusVerified   IncidentStatus = "VERIFIED"
	IncidentStatusInProgress IncidentStatus = "IN_PROGRESS"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
	IncidentStatusRejected   IncidentStatus = "REJECTED"
	IncidentStatusClosed     IncidentStatus = "CLOSED"

	AllocationStatusAssigned  AllocationStatus = "ASSIGNED"
	AllocationStatusAccepted  AllocationStatus = "ACCEPTED"
	AllocationStatusDeclined  AllocationStatus = "DECLINED"
	AllocationStatusCompleted AllocationStatus = "COMPLETED"

	ResponseTypeStatusUpdate ResponseType = "STATUS_UPDATE"
	ResponseTypeStatusReport ResponseType = "STATUS_REPORT"
	ResponseTypeFeedback     ResponseType = "FEEDBACK"

	NotificationTypeAlert   NotificationType = "alert"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeInfo    NotificationType = "info"
)

var (
	UserRoles = []UserRole{
		UserRoleCommunity, UserRoleVolunteer, UserRoleNGO, UserRoleGovernment, UserRoleAdmin,
	}

	ResponderRoles = []UserRole{UserRoleVolunteer, UserRoleNGO, UserRoleGovernment}

	IncidentTypes = []IncidentType{
		IncidentTypeFire, IncidentTypeFlood, IncidentTypeEarthquake, IncidentTypeLandslide,
		IncidentTypeCyclone, IncidentTypeTsunami, IncidentTypeDrought, IncidentTypeMedical,
		IncidentTypeAccident, IncidentTypeInfrastructure, IncidentTypeOther,
	}

	IncidentStatuses = []IncidentStatus{
		IncidentStatusPending, IncidentStatusVerified, IncidentStatusInProgress,
		IncidentStatusResolved, IncidentStatusRejected, IncidentStatusClosed,
	}

	AllocationStatuses = []AllocationStatus{
		AllocationStatusAssigned, AllocationStatusAccepted, AllocationStatusDeclined, AllocationStatusCompleted,
	}
)

// incidentTransitions - граф переходов для админского PATCH.
var incidentTransitions = map[IncidentStatus][]IncidentStatus{
	IncidentStatusPending:    {IncidentStatusVerified, IncidentStatusRejected, IncidentStatusClosed},
	IncidentStatusVerified:   {IncidentStatusInProgress, IncidentStatusRejected, IncidentStatusClosed},
	IncidentStatusInProgress: {IncidentStatusResolved, IncidentStatusRejected, IncidentStatusClosed},
	IncidentStatusResolved:   {IncidentStatusClosed},
}

func (r UserRole) IsValid() bool {
	for _, role := range UserRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsResponder - волонтеры, НКО и госструктуры.
func (r UserRole) IsResponder() bool {
	for _, role := range ResponderRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (t IncidentType) IsValid() bool {
	for _, it := range IncidentTypes {
		if t == it {
			return true
		}
	}
	return false
}

func (s IncidentStatus) IsValid() bool {
	for _, st := range IncidentStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal - на инцидент в этом статусе нельзя назначать ресурсы.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusRejected || s == IncidentStatusClosed
}

// CanTransitionTo проверяет переход по графу жизненного цикла.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	for _, allowed := range incidentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AllocationStatus) IsValid() bool {
	for _, st := range AllocationStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// NormalizeIncidentStatus приводит произвольный текст к UPPER_SNAKE_CASE
// ("in progress", "In-Progress" -> IN_PROGRESS) и проверяет вхождение в набор.
func NormalizeIncidentStatus(raw string) (IncidentStatus, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	status := IncidentStatus(s)
	return status, status.IsValid()
}
