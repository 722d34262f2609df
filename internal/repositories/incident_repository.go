package repositories

import (
	"errors"

	"relief_backend/internal/models"

	"gorm.io/gorm"
)

var ErrIncidentNotFound = errors.New("incident not found")

type IncidentRepository interface {
	Create(db *gorm.DB, incident *models.IncidentReport) error
	FindByID(db *gorm.DB, id string) (*models.IncidentReport, error)
	FindWithCriteria(db *gorm.DB, criteria IncidentCriteria) ([]models.IncidentReport, int64, error)
	Update(db *gorm.DB, id string, fields map[string]interface{}) error
	// Delete удаляет инцидент вместе с назначениями, журналом и уведомлениями.
	// Вызывающий передает транзакцию.
	Delete(db *gorm.DB, id string) error

	CountByStatus(db *gorm.DB, reporterID string) (map[string]int64, error)
}

type IncidentCriteria struct {
	ReporterID string
	Status     models.IncidentStatus
	Type       models.IncidentType
	Page       int
	PageSize   int
}

type IncidentRepositoryImpl struct{}

func NewIncidentRepository() IncidentRepository {
	return &IncidentRepositoryImpl{}
}

func (r *IncidentRepositoryImpl) Create(db *gorm.DB, incident *models.IncidentReport) error {
	return db.Create(incident).Error
}

func (r *IncidentRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.IncidentReport, error) {
	var incident models.IncidentReport
	err := db.Preload("Reporter").First(&incident, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, err
	}
	return &incident, nil
}

func (r *IncidentRepositoryImpl) FindWithCriteria(db *gorm.DB, criteria IncidentCriteria) ([]models.IncidentReport, int64, error) {
	var incidents []models.IncidentReport
	query := db.Model(&models.IncidentReport{})

	if criteria.ReporterID != "" {
		query = query.Where("reporter_id = ?", criteria.ReporterID)
	}
	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (criteria.Page - 1) * criteria.PageSize
	err := query.Preload("Reporter").
		Order("created_at DESC").
		Limit(criteria.PageSize).
		Offset(offset).
		Find(&incidents).Error

	return incidents, total, err
}

func (r *IncidentRepositoryImpl) Update(db *gorm.DB, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := db.Model(&models.IncidentReport{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

func (r *IncidentRepositoryImpl) Delete(db *gorm.DB, id string) error {
	if err := db.Where("incident_report_id = ?", id).Delete(&models.ResourceAllocation{}).Error; err != nil {
		return err
	}
	if err := db.Where("incident_report_id = ?", id).Delete(&models.Response{}).Error; err != nil {
		return err
	}
	if err := db.Where("incident_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.IncidentReport{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

// CountByStatus - пустой reporterID означает по всей платформе
func (r *IncidentRepositoryImpl) CountByStatus(db *gorm.DB, reporterID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	query := db.Model(&models.IncidentReport{}).Select("status, COUNT(*) as count")
	if reporterID != "" {
		query = query.Where("reporter_id = ?", reporterID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(models.IncidentStatuses))
	for _, s := range models.IncidentStatuses {
		counts[string(s)] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
