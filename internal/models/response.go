package models

import "gorm.io/datatypes"

// Response - запись журнала инцидента (статусы, отчеты респондентов, отзывы).
// Только добавление.
type Response struct {
	BaseModel
	IncidentReportID string       `gorm:"type:varchar(36);not null;index" json:"incidentReportId"`
	ResponderID      string       `gorm:"type:varchar(36);not null;index" json:"responderId"`
	Message          string       `gorm:"type:text;not null" json:"message"`
	Type             ResponseType `gorm:"type:varchar(32);not null" json:"type"`

	ChallengesFaced string         `gorm:"type:text" json:"challengesFaced,omitempty"`
	SuccessesHad    string         `gorm:"type:text" json:"successesHad,omitempty"`
	Recommendations string         `gorm:"type:text" json:"recommendations,omitempty"`
	Images          datatypes.JSON `json:"images,omitempty"`

	Responder *User `gorm:"foreignKey:ResponderID" json:"responder,omitempty"`
}

func (Response) TableName() string {
	return "responses"
}
