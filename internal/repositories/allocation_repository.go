package repositories

import (
	"errors"
	"time"

	"relief_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrAllocationNotFound = errors.New("allocation not found")
	// ErrAllocationNotAssigned - решение уже принято другим запросом
	ErrAllocationNotAssigned = errors.New("allocation is not in ASSIGNED state")
)

type AllocationRepository interface {
	Create(db *gorm.DB, allocation *models.ResourceAllocation) error
	FindByID(db *gorm.DB, id string) (*models.ResourceAllocation, error)
	FindByIncident(db *gorm.DB, incidentID string) ([]models.ResourceAllocation, error)
	FindWithCriteria(db *gorm.DB, criteria AllocationCriteria) ([]models.ResourceAllocation, int64, error)
	Decide(db *gorm.DB, id string, status models.AllocationStatus, reason string, at time.Time) error

	HasAccepted(db *gorm.DB, incidentID, userID string) (bool, error)
	AcceptedResponderIDs(db *gorm.DB, incidentID string) ([]string, error)

	GetStats(db *gorm.DB, userID string) (*AllocationStats, error)
	CountAssignedIncidents(db *gorm.DB, userID string) (int64, error)
}

type AllocationCriteria struct {
	AllocatedToID string
	Status        models.AllocationStatus
	Page          int
	PageSize      int
}

type AllocationStats struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"byStatus"`
	ByResourceType map[string]int64 `json:"byResourceType"`
}

type AllocationRepositoryImpl struct{}

func NewAllocationRepository() AllocationRepository {
	return &AllocationRepositoryImpl{}
}

func (r *AllocationRepositoryImpl) Create(db *gorm.DB, allocation *models.ResourceAllocation) error {
	return db.Create(allocation).Error
}

func (r *AllocationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ResourceAllocation, error) {
	var allocation models.ResourceAllocation
	if err := db.First(&allocation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

func (r *AllocationRepositoryImpl) FindByIncident(db *gorm.DB, incidentID string) ([]models.ResourceAllocation, error) {
	var allocations []models.ResourceAllocation
	err := db.Preload("AllocatedTo").
		Where("incident_report_id = ?", incidentID).
		Order("created_at DESC").
		Find(&allocations).Error
	return allocations, err
}

func (r *AllocationRepositoryImpl) FindWithCriteria(db *gorm.DB, criteria AllocationCriteria) ([]models.ResourceAllocation, int64, error) {
	var allocations []models.ResourceAllocation
	query := db.Model(&models.ResourceAllocation{})

	if criteria.AllocatedToID != "" {
		query = query.Where("allocated_to_id = ?", criteria.AllocatedToID)
	}
	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (criteria.Page - 1) * criteria.PageSize
	err := query.Preload("AllocatedTo").Preload("IncidentReport").
		Order("created_at DESC").
		Limit(criteria.PageSize).
		Offset(offset).
		Find(&allocations).Error
	return allocations, total, err
}

// Decide - условный переход ASSIGNED -> status. Из двух конкурентных решений проходит только первое.
func (r *AllocationRepositoryImpl) Decide(db *gorm.DB, id string, status models.AllocationStatus, reason string, at time.Time) error {
	fields := map[string]interface{}{
		"status":     status,
		"decided_at": at,
	}
	if reason != "" {
		fields["decline_reason"] = reason
	}

	result := db.Model(&models.ResourceAllocation{}).
		Where("id = ? AND status = ?", id, models.AllocationStatusAssigned).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAllocationNotAssigned
	}
	return nil
}

func (r *AllocationRepositoryImpl) HasAccepted(db *gorm.DB, incidentID, userID string) (bool, error) {
	var count int64
	err := db.Model(&models.ResourceAllocation{}).
		Where("incident_report_id = ? AND allocated_to_id = ? AND status = ?", incidentID, userID, models.AllocationStatusAccepted).
		Count(&count).Error
	return count > 0, err
}

func (r *AllocationRepositoryImpl) AcceptedResponderIDs(db *gorm.DB, incidentID string) ([]string, error) {
	var ids []string
	err := db.Model(&models.ResourceAllocation{}).
		Where("incident_report_id = ? AND status = ?", incidentID, models.AllocationStatusAccepted).
		Distinct().
		Pluck("allocated_to_id", &ids).Error
	return ids, err
}

// GetStats - пустой userID означает по всей платформе
func (r *AllocationRepositoryImpl) GetStats(db *gorm.DB, userID string) (*AllocationStats, error) {
	base := func() *gorm.DB {
		q := db.Model(&models.ResourceAllocation{})
		if userID != "" {
			q = q.Where("allocated_to_id = ?", userID)
		}
		return q
	}

	stats := &AllocationStats{
		ByStatus:       make(map[string]int64, len(models.AllocationStatuses)),
		ByResourceType: make(map[string]int64),
	}
	for _, s := range models.AllocationStatuses {
		stats.ByStatus[string(s)] = 0
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := base().Select("status, COUNT(*) as count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
	}

	var byType []struct {
		ResourceType string
		Count        int64
	}
	if err := base().Select("resource_type, COUNT(*) as count").Group("resource_type").Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		stats.ByResourceType[row.ResourceType] = row.Count
	}

	return stats, nil
}

func (r *AllocationRepositoryImpl) CountAssignedIncidents(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.ResourceAllocation{}).
		Where("allocated_to_id = ?", userID).
		Distinct("incident_report_id").
		Count(&count).Error
	return count, err
}
