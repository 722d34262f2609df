package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification - уведомление пользователя. После создания меняется только Read/ReadAt.
type Notification struct {
	BaseModel
	UserID       string           `gorm:"type:varchar(36);not null;index" json:"userId"`
	Type         NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	Title        string           `gorm:"not null" json:"title"`
	Message      string           `gorm:"type:text" json:"message"`
	IncidentID   *string          `gorm:"type:varchar(36);index" json:"incidentId,omitempty"`
	AllocationID *string          `gorm:"type:varchar(36)" json:"allocationId,omitempty"`
	Data         datatypes.JSON   `json:"data,omitempty"` // {"reason": "...", "status": "..."}
	Read         bool             `gorm:"not null;default:false;index" json:"read"`
	ReadAt       *time.Time       `json:"readAt,omitempty"`
}
