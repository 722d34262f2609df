package dto

type SupportRequest struct {
	Name    string `json:"name" validate:"required,not-blank,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,not-blank,max=200"`
	Message string `json:"message" validate:"required,not-blank,max=5000"`
}
