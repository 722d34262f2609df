package repositories

import (
	"relief_backend/internal/models"

	"gorm.io/gorm"
)

type SupportRepository interface {
	Create(db *gorm.DB, ticket *models.SupportTicket) error
}

type SupportRepositoryImpl struct{}

func NewSupportRepository() SupportRepository {
	return &SupportRepositoryImpl{}
}

func (r *SupportRepositoryImpl) Create(db *gorm.DB, ticket *models.SupportTicket) error {
	return db.Create(ticket).Error
}
