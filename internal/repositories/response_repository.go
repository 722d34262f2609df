package repositories

import (
	"relief_backend/internal/models"

	"gorm.io/gorm"
)

// ResponseRepository - журнал инцидента, только добавление и чтение
type ResponseRepository interface {
	Create(db *gorm.DB, response *models.Response) error
	FindByIncident(db *gorm.DB, incidentID string) ([]models.Response, error)
}

type ResponseRepositoryImpl struct{}

func NewResponseRepository() ResponseRepository {
	return &ResponseRepositoryImpl{}
}

func (r *ResponseRepositoryImpl) Create(db *gorm.DB, response *models.Response) error {
	return db.Create(response).Error
}

func (r *ResponseRepositoryImpl) FindByIncident(db *gorm.DB, incidentID string) ([]models.Response, error) {
	var responses []models.Response
	err := db.Preload("Responder").
		Where("incident_report_id = ?", incidentID).
		Order("created_at ASC").
		Find(&responses).Error
	return responses, err
}
