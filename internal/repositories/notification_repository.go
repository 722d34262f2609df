package repositories

import (
	"errors"
	"time"

	"relief_backend/internal/models"

	"gorm.io/gorm"
)

var ErrInvalidNotificationData = errors.New("invalid notification data")

// NotificationListLimit - сколько последних уведомлений отдается в списке
const NotificationListLimit = 50

type NotificationRepository interface {
	Create(db *gorm.DB, notification *models.Notification) error
	CreateBulk(db *gorm.DB, notifications []*models.Notification) error
	FindLatest(db *gorm.DB, userID string, limit int) ([]models.Notification, error)
	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
	// MarkRead помечает прочитанными уведомления пользователя; пустой ids - все.
	MarkRead(db *gorm.DB, userID string, ids []string, at time.Time) (int64, error)
}

type NotificationRepositoryImpl struct{}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r *NotificationRepositoryImpl) Create(db *gorm.DB, notification *models.Notification) error {
	if err := r.validateNotification(notification); err != nil {
		return err
	}
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) CreateBulk(db *gorm.DB, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	for _, notification := range notifications {
		if err := r.validateNotification(notification); err != nil {
			return err
		}
	}
	return db.CreateInBatches(notifications, 100).Error
}

func (r *NotificationRepositoryImpl) FindLatest(db *gorm.DB, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > NotificationListLimit {
		limit = NotificationListLimit
	}

	var notifications []models.Notification
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepositoryImpl) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) MarkRead(db *gorm.DB, userID string, ids []string, at time.Time) (int64, error) {
	query := db.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	result := query.Updates(map[string]interface{}{
		"read":    true,
		"read_at": at,
	})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) validateNotification(n *models.Notification) error {
	if n.UserID == "" || n.Title == "" {
		return ErrInvalidNotificationData
	}
	switch n.Type {
	case models.NotificationTypeAlert, models.NotificationTypeSuccess, models.NotificationTypeInfo:
		return nil
	default:
		return ErrInvalidNotificationData
	}
}
