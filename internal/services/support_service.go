package services

import (
	"context"
	"strings"

	"relief_backend/internal/email"
	"relief_backend/internal/logger"
	"relief_backend/internal/metrics"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type SupportService interface {
	Submit(ctx context.Context, db *gorm.DB, userID string, req *dto.SupportRequest) (*models.SupportTicket, error)
}

type SupportServiceImpl struct {
	supportRepo   repositories.SupportRepository
	emailProvider email.Provider
	inbox         string
}

// NewSupportService - пустой inbox отключает пересылку на почту
func NewSupportService(supportRepo repositories.SupportRepository, emailProvider email.Provider, inbox string) SupportService {
	return &SupportServiceImpl{
		supportRepo:   supportRepo,
		emailProvider: emailProvider,
		inbox:         inbox,
	}
}

// Submit сохраняет обращение; письмо в поддержку отправляется, но его ошибка только логируется
func (s *SupportServiceImpl) Submit(ctx context.Context, db *gorm.DB, userID string, req *dto.SupportRequest) (*models.SupportTicket, error) {
	ticket := &models.SupportTicket{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if userID != "" {
		ticket.UserID = &userID
	}

	if err := s.supportRepo.Create(db, ticket); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if s.inbox != "" {
		err := s.emailProvider.SendTemplate(ctx, []string{s.inbox}, "[Support] "+ticket.Subject, email.TemplateSupport, email.TemplateData{
			"Name":    ticket.Name,
			"Email":   ticket.Email,
			"Subject": ticket.Subject,
			"Message": ticket.Message,
		})
		metrics.EmailsTotal.WithLabelValues(email.TemplateSupport, metrics.Result(err)).Inc()
		if err != nil {
			logger.CtxWithError(ctx, "support email failed", err, "ticket_id", ticket.ID)
		}
	}

	logger.CtxInfo(ctx, "support ticket created", "ticket_id", ticket.ID)
	return ticket, nil
}
