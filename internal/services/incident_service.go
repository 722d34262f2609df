package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"relief_backend/internal/auth"
	"relief_backend/internal/logger"
	"relief_backend/internal/metrics"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultSeverity = 3

type IncidentService interface {
	Create(ctx context.Context, db *gorm.DB, reporter *models.User, req *dto.CreateIncidentRequest) (*models.IncidentReport, error)
	List(ctx context.Context, db *gorm.DB, actor *models.User, query *dto.IncidentListQuery, page, pageSize int) (*dto.IncidentListResponse, error)
	Get(ctx context.Context, db *gorm.DB, actor *models.User, id string) (*models.IncidentReport, error)
	Update(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.UpdateIncidentRequest) (*models.IncidentReport, error)
	Delete(ctx context.Context, db *gorm.DB, actor *models.User, id string) error

	// Журнал инцидента
	UpdateStatus(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.UpdateStatusRequest) (*dto.StatusChangeResponse, error)
	SubmitStatusReport(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.StatusReportRequest) (*models.Response, error)
	SubmitFeedback(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.FeedbackRequest) (*models.Response, error)
	ListResponses(ctx context.Context, db *gorm.DB, actor *models.User, id string) ([]models.Response, error)
}

type IncidentServiceImpl struct {
	incidentRepo        repositories.IncidentRepository
	allocationRepo      repositories.AllocationRepository
	responseRepo        repositories.ResponseRepository
	notificationService NotificationService
}

func NewIncidentService(
	incidentRepo repositories.IncidentRepository,
	allocationRepo repositories.AllocationRepository,
	responseRepo repositories.ResponseRepository,
	notificationService NotificationService,
) IncidentService {
	return &IncidentServiceImpl{
		incidentRepo:        incidentRepo,
		allocationRepo:      allocationRepo,
		responseRepo:        responseRepo,
		notificationService: notificationService,
	}
}

func (s *IncidentServiceImpl) Create(ctx context.Context, db *gorm.DB, reporter *models.User, req *dto.CreateIncidentRequest) (*models.IncidentReport, error) {
	severity := defaultSeverity
	if req.Severity != nil {
		severity = *req.Severity
	}

	incident := &models.IncidentReport{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Type:        models.IncidentType(strings.ToUpper(req.Type)),
		Severity:    severity,
		Status:      models.IncidentStatusPending,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Images:      marshalImages(req.Images),
		ReporterID:  reporter.ID,
	}

	if err := s.incidentRepo.Create(db, incident); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "incident reported", "incident_id", incident.ID, "type", incident.Type, "severity", incident.Severity)
	return incident, nil
}

// List - житель видит только свои отчеты, остальные роли видят все
func (s *IncidentServiceImpl) List(ctx context.Context, db *gorm.DB, actor *models.User, query *dto.IncidentListQuery, page, pageSize int) (*dto.IncidentListResponse, error) {
	criteria := repositories.IncidentCriteria{
		Page:     page,
		PageSize: pageSize,
	}
	if !auth.HasPermission(actor.Role, auth.PermIncidentReadAll) {
		criteria.ReporterID = actor.ID
	}
	if query != nil {
		if query.Status != "" {
			criteria.Status, _ = models.NormalizeIncidentStatus(query.Status)
		}
		if query.Type != "" {
			criteria.Type = models.IncidentType(strings.ToUpper(query.Type))
		}
	}

	incidents, total, err := s.incidentRepo.FindWithCriteria(db, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if incidents == nil {
		incidents = []models.IncidentReport{}
	}

	return &dto.IncidentListResponse{
		Incidents:  incidents,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *IncidentServiceImpl) Get(ctx context.Context, db *gorm.DB, actor *models.User, id string) (*models.IncidentReport, error) {
	incident, err := s.findIncident(db, id)
	if err != nil {
		return nil, err
	}
	if !canViewIncident(actor, incident) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return incident, nil
}

// Update - админский PATCH. Смена статуса идет по графу жизненного цикла.
func (s *IncidentServiceImpl) Update(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.UpdateIncidentRequest) (*models.IncidentReport, error) {
	incident, err := s.findIncident(db, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		fields["type"] = models.IncidentType(strings.ToUpper(*req.Type))
	}
	if req.Severity != nil {
		fields["severity"] = *req.Severity
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.Latitude != nil {
		fields["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		fields["longitude"] = *req.Longitude
	}

	prev := incident.Status
	next := prev
	if req.Status != nil {
		status, ok := models.NormalizeIncidentStatus(*req.Status)
		if !ok {
			return nil, apperrors.ErrInvalidIncidentStatus
		}
		if status != prev {
			if !prev.CanTransitionTo(status) {
				return nil, apperrors.ErrInvalidTransition.WithDetails(map[string]string{
					"from": string(prev),
					"to":   string(status),
				})
			}
			next = status
			applyStatusFields(fields, actor, next)
		}
	}

	if len(fields) == 0 {
		return incident, nil
	}

	var notification *models.Notification
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.incidentRepo.Update(tx, incident.ID, fields); err != nil {
			return err
		}
		if next != prev && incident.ReporterID != actor.ID {
			notification = statusNotification(incident, next)
			return s.notificationService.Create(tx, notification)
		}
		return nil
	})
	if err != nil {
		return nil, handleIncidentError(err)
	}

	if next != prev {
		metrics.IncidentStatusChangesTotal.WithLabelValues(string(next)).Inc()
		logger.CtxInfo(ctx, "incident status changed", "incident_id", incident.ID, "from", prev, "to", next)
	}
	s.notificationService.Publish(ctx, notification)

	return s.findIncident(db, incident.ID)
}

// Delete - администратор или автор отчета
func (s *IncidentServiceImpl) Delete(ctx context.Context, db *gorm.DB, actor *models.User, id string) error {
	incident, err := s.findIncident(db, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && incident.ReporterID != actor.ID {
		return apperrors.ErrInsufficientPermissions
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return s.incidentRepo.Delete(tx, incident.ID)
	})
	if err != nil {
		return handleIncidentError(err)
	}

	logger.CtxInfo(ctx, "incident deleted", "incident_id", incident.ID)
	return nil
}

// UpdateStatus - POST /status. Проверяется только принадлежность статуса набору, граф не применяется.
func (s *IncidentServiceImpl) UpdateStatus(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.UpdateStatusRequest) (*dto.StatusChangeResponse, error) {
	next, ok := models.NormalizeIncidentStatus(req.Status)
	if !ok {
		return nil, apperrors.ErrInvalidIncidentStatus
	}

	incident, err := s.findIncident(db, id)
	if err != nil {
		return nil, err
	}
	if !canViewIncident(actor, incident) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	prev := incident.Status
	message := fmt.Sprintf("Status changed from %s to %s", prev, next)
	if next == prev {
		message = fmt.Sprintf("Status confirmed as %s", next)
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		message += ": " + note
	}

	response := &models.Response{
		IncidentReportID: incident.ID,
		ResponderID:      actor.ID,
		Message:          message,
		Type:             models.ResponseTypeStatusUpdate,
	}

	var notification *models.Notification
	err = db.Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{"status": next}
		if next != prev {
			applyStatusFields(fields, actor, next)
		}
		if err := s.incidentRepo.Update(tx, incident.ID, fields); err != nil {
			return err
		}
		if err := s.responseRepo.Create(tx, response); err != nil {
			return err
		}
		if next != prev && incident.ReporterID != actor.ID {
			notification = statusNotification(incident, next)
			return s.notificationService.Create(tx, notification)
		}
		return nil
	})
	if err != nil {
		return nil, handleIncidentError(err)
	}

	if next != prev {
		metrics.IncidentStatusChangesTotal.WithLabelValues(string(next)).Inc()
	}
	logger.CtxInfo(ctx, "incident status updated", "incident_id", incident.ID, "from", prev, "to", next, "actor_role", actor.Role)
	s.notificationService.Publish(ctx, notification)

	updated, err := s.findIncident(db, incident.ID)
	if err != nil {
		return nil, err
	}
	return &dto.StatusChangeResponse{Incident: updated, Response: response}, nil
}

// SubmitStatusReport - администратор или респондент с принятым назначением на этот инцидент
func (s *IncidentServiceImpl) SubmitStatusReport(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.StatusReportRequest) (*models.Response, error) {
	incident, err := s.findIncident(db, id)
	if err != nil {
		return nil, err
	}

	if !auth.HasPermission(actor.Role, auth.PermStatusReport) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	if !actor.IsAdmin() {
		accepted, err := s.allocationRepo.HasAccepted(db, incident.ID, actor.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if !accepted {
			return nil, apperrors.NewForbiddenError("Only responders with an accepted allocation can report on this incident")
		}
	}

	fields := map[string]interface{}{}
	next := incident.Status
	if req.Status != "" {
		status, ok := models.NormalizeIncidentStatus(req.Status)
		if !ok {
			return nil, apperrors.ErrInvalidIncidentStatus
		}
		if status != incident.Status {
			next = status
			fields["status"] = next
			applyStatusFields(fields, actor, next)
		}
	}

	response := &models.Response{
		IncidentReportID: incident.ID,
		ResponderID:      actor.ID,
		Message:          strings.TrimSpace(req.Message),
		Type:             models.ResponseTypeStatusReport,
		ChallengesFaced:  req.ChallengesFaced,
		SuccessesHad:     req.SuccessesHad,
		Recommendations:  req.Recommendations,
		Images:           marshalImages(req.Images),
	}

	var notification *models.Notification
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.incidentRepo.Update(tx, incident.ID, fields); err != nil {
			return err
		}
		if err := s.responseRepo.Create(tx, response); err != nil {
			return err
		}
		if incident.ReporterID != actor.ID {
			notification = newNotification(incident.ReporterID, models.NotificationTypeInfo,
				"New status report",
				fmt.Sprintf("A responder posted a status report on \"%s\"", incident.Title),
				strPtr(incident.ID), nil,
				map[string]interface{}{"status": next})
			return s.notificationService.Create(tx, notification)
		}
		return nil
	})
	if err != nil {
		return nil, handleIncidentError(err)
	}

	if next != incident.Status {
		metrics.IncidentStatusChangesTotal.WithLabelValues(string(next)).Inc()
	}
	s.notificationService.Publish(ctx, notification)
	return response, nil
}

// SubmitFeedback - автор отчета или администратор; уведомляются респонденты с принятыми назначениями
func (s *IncidentServiceImpl) SubmitFeedback(ctx context.Context, db *gorm.DB, actor *models.User, id string, req *dto.FeedbackRequest) (*models.Response, error) {
	incident, err := s.findIncident(db, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && incident.ReporterID != actor.ID {
		return nil, apperrors.ErrInsufficientPermissions
	}

	responderIDs, err := s.allocationRepo.AcceptedResponderIDs(db, incident.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	response := &models.Response{
		IncidentReportID: incident.ID,
		ResponderID:      actor.ID,
		Message:          strings.TrimSpace(req.Message),
		Type:             models.ResponseTypeFeedback,
	}

	notifications := make([]*models.Notification, 0, len(responderIDs))
	for _, responderID := range responderIDs {
		if responderID == actor.ID {
			continue
		}
		notifications = append(notifications, newNotification(responderID, models.NotificationTypeInfo,
			"New feedback",
			fmt.Sprintf("New feedback on \"%s\"", incident.Title),
			strPtr(incident.ID), nil, nil))
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.responseRepo.Create(tx, response); err != nil {
			return err
		}
		return s.notificationService.CreateBulk(tx, notifications)
	})
	if err != nil {
		return nil, handleIncidentError(err)
	}

	s.notificationService.Publish(ctx, notifications...)
	return response, nil
}

func (s *IncidentServiceImpl) ListResponses(ctx context.Context, db *gorm.DB, actor *models.User, id string) ([]models.Response, error) {
	incident, err := s.Get(ctx, db, actor, id)
	if err != nil {
		return nil, err
	}

	responses, err := s.responseRepo.FindByIncident(db, incident.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if responses == nil {
		responses = []models.Response{}
	}
	return responses, nil
}

func (s *IncidentServiceImpl) findIncident(db *gorm.DB, id string) (*models.IncidentReport, error) {
	incident, err := s.incidentRepo.FindByID(db, id)
	if err != nil {
		return nil, handleIncidentError(err)
	}
	return incident, nil
}

// canViewIncident - без incidents:read:all читаются только собственные отчеты
func canViewIncident(actor *models.User, incident *models.IncidentReport) bool {
	if auth.HasPermission(actor.Role, auth.PermIncidentReadAll) {
		return true
	}
	return incident.ReporterID == actor.ID
}

// applyStatusFields дописывает статус и, для VERIFIED, кто и когда подтвердил
func applyStatusFields(fields map[string]interface{}, actor *models.User, next models.IncidentStatus) {
	fields["status"] = next
	if next == models.IncidentStatusVerified {
		fields["verified_by"] = actor.ID
		fields["verified_at"] = time.Now()
	}
}

func statusNotification(incident *models.IncidentReport, next models.IncidentStatus) *models.Notification {
	typ := models.NotificationTypeInfo
	switch next {
	case models.IncidentStatusVerified, models.IncidentStatusResolved:
		typ = models.NotificationTypeSuccess
	case models.IncidentStatusRejected:
		typ = models.NotificationTypeAlert
	}
	return newNotification(incident.ReporterID, typ,
		"Incident status updated",
		fmt.Sprintf("Your report \"%s\" is now %s", incident.Title, next),
		strPtr(incident.ID), nil,
		map[string]interface{}{"status": next})
}

func marshalImages(images []string) datatypes.JSON {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

func handleIncidentError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, repositories.ErrIncidentNotFound) {
		return apperrors.ErrIncidentNotFound
	}
	return apperrors.InternalError(err)
}
