package dto

import "relief_backend/internal/models"

type CreateIncidentRequest struct {
	Title       string   `json:"title" validate:"required,not-blank,max=200"`
	Description string   `json:"description" validate:"required,not-blank,max=5000"`
	Type        string   `json:"type" validate:"required,is-incident-type"`
	Severity    *int     `json:"severity" validate:"omitempty,min=1,max=5"`
	Address     string   `json:"address" validate:"omitempty,max=500"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,required,max=2048"`
}

// UpdateIncidentRequest - админский PATCH, все поля необязательные
type UpdateIncidentRequest struct {
	Title       *string  `json:"title" validate:"omitempty,not-blank,max=200"`
	Description *string  `json:"description" validate:"omitempty,not-blank,max=5000"`
	Type        *string  `json:"type" validate:"omitempty,is-incident-type"`
	Severity    *int     `json:"severity" validate:"omitempty,min=1,max=5"`
	Address     *string  `json:"address" validate:"omitempty,max=500"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Status      *string  `json:"status" validate:"omitempty,is-incident-status"`
}

type IncidentListQuery struct {
	Status string `form:"status" validate:"omitempty,is-incident-status"`
	Type   string `form:"type" validate:"omitempty,is-incident-type"`
}

type IncidentListResponse struct {
	Incidents  []models.IncidentReport `json:"incidents"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	TotalPages int                     `json:"totalPages"`
}

// UpdateStatusRequest - свободный текст статуса, нормализуется в UPPER_SNAKE_CASE
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,is-incident-status"`
	Note   string `json:"note" validate:"omitempty,max=2000"`
}

type StatusChangeResponse struct {
	Incident *models.IncidentReport `json:"incident"`
	Response *models.Response       `json:"response"`
}

type StatusReportRequest struct {
	Message         string   `json:"message" validate:"required,not-blank,max=5000"`
	ChallengesFaced string   `json:"challengesFaced" validate:"omitempty,max=5000"`
	SuccessesHad    string   `json:"successesHad" validate:"omitempty,max=5000"`
	Recommendations string   `json:"recommendations" validate:"omitempty,max=5000"`
	Images          []string `json:"images" validate:"omitempty,max=20,dive,required,max=2048"`
	Status          string   `json:"status" validate:"omitempty,is-incident-status"`
}

type FeedbackRequest struct {
	Message string `json:"message" validate:"required,not-blank,max=5000"`
}

// UserStatsResponse - набор полей зависит от роли
type UserStatsResponse struct {
	Role              models.UserRole  `json:"role"`
	Incidents         map[string]int64 `json:"incidents,omitempty"`
	TotalIncidents    int64            `json:"totalIncidents"`
	Allocations       map[string]int64 `json:"allocations,omitempty"`
	AssignedIncidents int64            `json:"assignedIncidents,omitempty"`
	PendingVetting    int64            `json:"pendingVetting,omitempty"`
}
