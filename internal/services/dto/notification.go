package dto

import "relief_backend/internal/models"

// MarkReadRequest - пустой ids помечает прочитанными все уведомления
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"omitempty,max=500,dive,required"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}
