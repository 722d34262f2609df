package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"relief_backend/internal/email"
	"relief_backend/internal/logger"
	"relief_backend/internal/metrics"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/internal/validator"
	"relief_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	defaultPriority = 3
	// allocationEmailTimeout - письмо о назначении отправляется вне запроса
	allocationEmailTimeout = 30 * time.Second
)

type AllocationService interface {
	Create(ctx context.Context, db *gorm.DB, admin *models.User, incidentID string, req *dto.CreateAllocationRequest) (*models.ResourceAllocation, error)
	ListByIncident(ctx context.Context, db *gorm.DB, incidentID string) ([]models.ResourceAllocation, error)
	Decide(ctx context.Context, db *gorm.DB, actor *models.User, incidentID string, req *dto.DecideAllocationRequest) (*models.ResourceAllocation, error)
	List(ctx context.Context, db *gorm.DB, actor *models.User, query *dto.AllocationListQuery, page, pageSize int) (*dto.AllocationListResponse, error)
	Stats(ctx context.Context, db *gorm.DB, actor *models.User) (*repositories.AllocationStats, error)
}

type AllocationServiceImpl struct {
	allocationRepo      repositories.AllocationRepository
	incidentRepo        repositories.IncidentRepository
	userRepo            repositories.UserRepository
	notificationService NotificationService
	emailProvider       email.Provider
}

func NewAllocationService(
	allocationRepo repositories.AllocationRepository,
	incidentRepo repositories.IncidentRepository,
	userRepo repositories.UserRepository,
	notificationService NotificationService,
	emailProvider email.Provider,
) AllocationService {
	return &AllocationServiceImpl{
		allocationRepo:      allocationRepo,
		incidentRepo:        incidentRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
		emailProvider:       emailProvider,
	}
}

// Create назначает респондента на инцидент. Оба уведомления пишутся в той же транзакции,
// письмо уходит без ожидания.
func (s *AllocationServiceImpl) Create(ctx context.Context, db *gorm.DB, admin *models.User, incidentID string, req *dto.CreateAllocationRequest) (*models.ResourceAllocation, error) {
	priority := defaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < 1 || priority > 5 {
		return nil, apperrors.ValidationError(map[string]string{"priority": "Must be between 1 and 5"})
	}

	incident, err := s.incidentRepo.FindByID(db, incidentID)
	if err != nil {
		return nil, handleIncidentError(err)
	}
	if incident.Status.IsTerminal() {
		return nil, apperrors.ErrIncidentClosed.WithDetails(map[string]string{"status": string(incident.Status)})
	}

	responder, err := s.userRepo.FindByID(db, req.AllocatedToID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if !responder.Role.IsResponder() {
		return nil, apperrors.ErrInvalidAllocationTarget
	}

	allocation := &models.ResourceAllocation{
		IncidentReportID: incident.ID,
		AllocatedToID:    responder.ID,
		AllocatedByID:    admin.ID,
		ResourceType:     strings.TrimSpace(req.ResourceType),
		Description:      req.Description,
		Priority:         priority,
		Status:           models.AllocationStatusAssigned,
	}

	var notifications []*models.Notification
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.allocationRepo.Create(tx, allocation); err != nil {
			return err
		}

		toResponder := newNotification(responder.ID, models.NotificationTypeAlert,
			"New resource allocation",
			fmt.Sprintf("You have been assigned %s (priority %d) for \"%s\"", allocation.ResourceType, priority, incident.Title),
			strPtr(incident.ID), strPtr(allocation.ID),
			map[string]interface{}{"status": allocation.Status, "priority": priority})
		if err := s.notificationService.Create(tx, toResponder); err != nil {
			return err
		}
		notifications = append(notifications, toResponder)

		toReporter := newNotification(incident.ReporterID, models.NotificationTypeInfo,
			"Help is on the way",
			fmt.Sprintf("%s has been allocated to your report \"%s\"", allocation.ResourceType, incident.Title),
			strPtr(incident.ID), strPtr(allocation.ID), nil)
		if err := s.notificationService.Create(tx, toReporter); err != nil {
			return err
		}
		notifications = append(notifications, toReporter)
		return nil
	})
	if err != nil {
		return nil, handleAllocationError(err)
	}

	metrics.AllocationsTotal.Inc()
	logger.CtxInfo(ctx, "resource allocated",
		"allocation_id", allocation.ID,
		"incident_id", incident.ID,
		"allocated_to", responder.ID,
		"priority", priority,
	)
	s.notificationService.Publish(ctx, notifications...)

	// Отмена запроса не должна обрывать письмо, значения контекста (request id) сохраняем
	go s.sendAllocationEmail(context.WithoutCancel(ctx), responder, incident, allocation)

	allocation.AllocatedTo = responder
	return allocation, nil
}

func (s *AllocationServiceImpl) sendAllocationEmail(ctx context.Context, responder *models.User, incident *models.IncidentReport, allocation *models.ResourceAllocation) {
	ctx, cancel := context.WithTimeout(ctx, allocationEmailTimeout)
	defer cancel()

	err := s.emailProvider.SendTemplate(ctx, []string{responder.Email}, "New assignment: "+incident.Title, email.TemplateAllocation, email.TemplateData{
		"Name":          responder.Name,
		"ResourceType":  allocation.ResourceType,
		"Priority":      allocation.Priority,
		"IncidentTitle": incident.Title,
		"Address":       incident.Address,
		"Description":   allocation.Description,
	})
	metrics.EmailsTotal.WithLabelValues(email.TemplateAllocation, metrics.Result(err)).Inc()
	if err != nil {
		logger.CtxWithError(ctx, "allocation email failed", err, "allocation_id", allocation.ID, "to", responder.Email)
	}
}

func (s *AllocationServiceImpl) ListByIncident(ctx context.Context, db *gorm.DB, incidentID string) ([]models.ResourceAllocation, error) {
	if _, err := s.incidentRepo.FindByID(db, incidentID); err != nil {
		return nil, handleIncidentError(err)
	}

	allocations, err := s.allocationRepo.FindByIncident(db, incidentID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if allocations == nil {
		allocations = []models.ResourceAllocation{}
	}
	return allocations, nil
}

// Decide - ACCEPT/DECLINE назначенного респондента. Первое решение выигрывает.
func (s *AllocationServiceImpl) Decide(ctx context.Context, db *gorm.DB, actor *models.User, incidentID string, req *dto.DecideAllocationRequest) (*models.ResourceAllocation, error) {
	allocation, err := s.allocationRepo.FindByID(db, req.AllocationID)
	if err != nil {
		return nil, handleAllocationError(err)
	}
	if allocation.IncidentReportID != incidentID {
		return nil, apperrors.ErrAllocationMismatch
	}
	if allocation.AllocatedToID != actor.ID {
		return nil, apperrors.ErrNotAllocatedUser
	}
	if allocation.Status != models.AllocationStatusAssigned {
		return nil, apperrors.ErrAllocationNotAssigned
	}

	incident, err := s.incidentRepo.FindByID(db, incidentID)
	if err != nil {
		return nil, handleIncidentError(err)
	}

	status := models.AllocationStatusAccepted
	reason := ""
	if validator.NormalizeDecision(req.Decision) == validator.DecisionDecline {
		status = models.AllocationStatusDeclined
		reason = strings.TrimSpace(req.Reason)
	}
	now := time.Now()

	var notification *models.Notification
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.allocationRepo.Decide(tx, allocation.ID, status, reason, now); err != nil {
			return err
		}

		data := map[string]interface{}{"status": status}
		var typ models.NotificationType
		var message string
		if status == models.AllocationStatusAccepted {
			typ = models.NotificationTypeSuccess
			message = fmt.Sprintf("%s accepted the %s allocation for \"%s\"", actor.Name, allocation.ResourceType, incident.Title)
		} else {
			typ = models.NotificationTypeAlert
			message = fmt.Sprintf("%s declined the %s allocation for \"%s\"", actor.Name, allocation.ResourceType, incident.Title)
			if reason != "" {
				message += ". Reason: " + reason
				data["reason"] = reason
			}
		}

		notification = newNotification(allocation.AllocatedByID, typ,
			"Allocation "+strings.ToLower(string(status)),
			message,
			strPtr(incident.ID), strPtr(allocation.ID), data)
		return s.notificationService.Create(tx, notification)
	})
	if err != nil {
		return nil, handleAllocationError(err)
	}

	metrics.AllocationDecisionsTotal.WithLabelValues(string(status)).Inc()
	logger.CtxInfo(ctx, "allocation decided", "allocation_id", allocation.ID, "status", status)
	s.notificationService.Publish(ctx, notification)

	allocation.Status = status
	allocation.DecidedAt = &now
	if reason != "" {
		allocation.DeclineReason = reason
	}
	return allocation, nil
}

// List - респондент видит свои назначения, администратор все
func (s *AllocationServiceImpl) List(ctx context.Context, db *gorm.DB, actor *models.User, query *dto.AllocationListQuery, page, pageSize int) (*dto.AllocationListResponse, error) {
	criteria := repositories.AllocationCriteria{Page: page, PageSize: pageSize}
	if !actor.IsAdmin() {
		if !actor.Role.IsResponder() {
			return nil, apperrors.ErrInsufficientPermissions
		}
		criteria.AllocatedToID = actor.ID
	}
	if query != nil && query.Status != "" {
		criteria.Status = models.AllocationStatus(query.Status)
	}

	allocations, total, err := s.allocationRepo.FindWithCriteria(db, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if allocations == nil {
		allocations = []models.ResourceAllocation{}
	}

	return &dto.AllocationListResponse{
		Allocations: allocations,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages(total, pageSize),
	}, nil
}

func (s *AllocationServiceImpl) Stats(ctx context.Context, db *gorm.DB, actor *models.User) (*repositories.AllocationStats, error) {
	userID := ""
	if !actor.IsAdmin() {
		if !actor.Role.IsResponder() {
			return nil, apperrors.ErrInsufficientPermissions
		}
		userID = actor.ID
	}

	stats, err := s.allocationRepo.GetStats(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return stats, nil
}

func handleAllocationError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrAllocationNotFound):
		return apperrors.ErrAllocationNotFound
	case errors.Is(err, repositories.ErrAllocationNotAssigned):
		return apperrors.ErrAllocationNotAssigned
	default:
		return apperrors.InternalError(err)
	}
}
