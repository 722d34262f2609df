package services

import (
	"context"
	"encoding/json"
	"time"

	"relief_backend/internal/logger"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publisher доставляет уведомление подключенным клиентам получателя (websocket).
type Publisher interface {
	SendToUser(userID string, payload interface{})
}

type NotificationService interface {
	// Create пишет уведомление в переданный db (обычно транзакцию основной операции)
	Create(db *gorm.DB, n *models.Notification) error
	CreateBulk(db *gorm.DB, notifications []*models.Notification) error
	// Publish отправляет уже закоммиченные уведомления в push
	Publish(ctx context.Context, notifications ...*models.Notification)

	List(db *gorm.DB, userID string) (*dto.NotificationListResponse, error)
	MarkRead(db *gorm.DB, userID string, req *dto.MarkReadRequest) (*dto.MarkReadResponse, error)
}

type NotificationServiceImpl struct {
	notificationRepo repositories.NotificationRepository
	publisher        Publisher
}

// NewNotificationService - publisher может быть nil, тогда push отключен
func NewNotificationService(notificationRepo repositories.NotificationRepository, publisher Publisher) NotificationService {
	return &NotificationServiceImpl{
		notificationRepo: notificationRepo,
		publisher:        publisher,
	}
}

func (s *NotificationServiceImpl) Create(db *gorm.DB, n *models.Notification) error {
	if err := s.notificationRepo.Create(db, n); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *NotificationServiceImpl) CreateBulk(db *gorm.DB, notifications []*models.Notification) error {
	if err := s.notificationRepo.CreateBulk(db, notifications); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *NotificationServiceImpl) Publish(ctx context.Context, notifications ...*models.Notification) {
	if s.publisher == nil {
		return
	}
	for _, n := range notifications {
		if n == nil {
			continue
		}
		s.publisher.SendToUser(n.UserID, n)
		logger.CtxDebug(ctx, "notification pushed", "user_id", n.UserID, "notification_id", n.ID)
	}
}

func (s *NotificationServiceImpl) List(db *gorm.DB, userID string) (*dto.NotificationListResponse, error) {
	notifications, err := s.notificationRepo.FindLatest(db, userID, repositories.NotificationListLimit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	unread, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return &dto.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationServiceImpl) MarkRead(db *gorm.DB, userID string, req *dto.MarkReadRequest) (*dto.MarkReadResponse, error) {
	var ids []string
	if req != nil {
		ids = req.IDs
	}

	updated, err := s.notificationRepo.MarkRead(db, userID, ids, time.Now())
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.MarkReadResponse{Updated: updated}, nil
}

// newNotification - конструктор уведомления с необязательными ссылками и данными
func newNotification(userID string, typ models.NotificationType, title, message string, incidentID, allocationID *string, data map[string]interface{}) *models.Notification {
	n := &models.Notification{
		UserID:       userID,
		Type:         typ,
		Title:        title,
		Message:      message,
		IncidentID:   incidentID,
		AllocationID: allocationID,
	}
	if len(data) > 0 {
		if raw, err := json.Marshal(data); err == nil {
			n.Data = datatypes.JSON(raw)
		}
	}
	return n
}

func strPtr(s string) *string {
	return &s
}
