package models

type SupportTicket struct {
	BaseModel
	Name    string  `gorm:"not null" json:"name"`
	Email   string  `gorm:"not null" json:"email"`
	Subject string  `gorm:"not null" json:"subject"`
	Message string  `gorm:"type:text;not null" json:"message"`
	UserID  *string `gorm:"type:varchar(36);index" json:"userId,omitempty"`
}
