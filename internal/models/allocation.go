package models

import "time"

type ResourceAllocation struct {
	BaseModel
	IncidentReportID string           `gorm:"type:varchar(36);not null;index" json:"incidentReportId"`
	AllocatedToID    string           `gorm:"type:varchar(36);not null;index" json:"allocatedToId"`
	AllocatedByID    string           `gorm:"type:varchar(36);not null" json:"allocatedById"`
	ResourceType     string           `gorm:"not null" json:"resourceType"`
	Description      string           `gorm:"type:text" json:"description"`
	Priority         int              `gorm:"not null;default:3" json:"priority"`
	Status           AllocationStatus `gorm:"type:varchar(32);not null;default:ASSIGNED;index" json:"status"`
	DeclineReason    string           `json:"declineReason,omitempty"`
	DecidedAt        *time.Time       `json:"decidedAt,omitempty"`

	AllocatedTo    *User           `gorm:"foreignKey:AllocatedToID" json:"allocatedTo,omitempty"`
	IncidentReport *IncidentReport `gorm:"foreignKey:IncidentReportID" json:"incidentReport,omitempty"`
}

func (ResourceAllocation) TableName() string {
	return "resource_allocations"
}
