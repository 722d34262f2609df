package models

import (
	"time"

	"gorm.io/datatypes"
)

type IncidentReport struct {
	BaseModel
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Type        IncidentType   `gorm:"type:varchar(32);not null;index" json:"type"`
	Severity    int            `gorm:"not null;default:3" json:"severity"`
	Status      IncidentStatus `gorm:"type:varchar(32);not null;default:PENDING;index" json:"status"`
	Address     string         `json:"address"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Images      datatypes.JSON `json:"images"`

	ReporterID string `gorm:"type:varchar(36);not null;index" json:"reporterId"`
	Reporter   *User  `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`

	VerifiedBy *string    `gorm:"type:varchar(36)" json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

func (IncidentReport) TableName() string {
	return "incident_reports"
}
