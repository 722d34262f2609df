package services

import (
	"relief_backend/internal/email"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	UserService         UserService
	IncidentService     IncidentService
	AllocationService   AllocationService
	NotificationService NotificationService
	StatsService        StatsService
	UploadService       UploadService
	SupportService      SupportService
	EmailService        email.Provider
}
