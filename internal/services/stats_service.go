package services

import (
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// StatsService - счетчики для дашборда, набор зависит от роли
type StatsService interface {
	UserStats(db *gorm.DB, actor *models.User) (*dto.UserStatsResponse, error)
}

type StatsServiceImpl struct {
	incidentRepo   repositories.IncidentRepository
	allocationRepo repositories.AllocationRepository
	userRepo       repositories.UserRepository
}

func NewStatsService(
	incidentRepo repositories.IncidentRepository,
	allocationRepo repositories.AllocationRepository,
	userRepo repositories.UserRepository,
) StatsService {
	return &StatsServiceImpl{
		incidentRepo:   incidentRepo,
		allocationRepo: allocationRepo,
		userRepo:       userRepo,
	}
}

func (s *StatsServiceImpl) UserStats(db *gorm.DB, actor *models.User) (*dto.UserStatsResponse, error) {
	resp := &dto.UserStatsResponse{Role: actor.Role}

	switch {
	case actor.Role == models.UserRoleCommunity:
		counts, err := s.incidentRepo.CountByStatus(db, actor.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		resp.Incidents = counts
		resp.TotalIncidents = sumCounts(counts)

	case actor.Role.IsResponder():
		stats, err := s.allocationRepo.GetStats(db, actor.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		assigned, err := s.allocationRepo.CountAssignedIncidents(db, actor.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		resp.Allocations = stats.ByStatus
		resp.AssignedIncidents = assigned

	case actor.IsAdmin():
		counts, err := s.incidentRepo.CountByStatus(db, "")
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		pending, err := s.userRepo.CountPendingVetting(db)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		resp.Incidents = counts
		resp.TotalIncidents = sumCounts(counts)
		resp.PendingVetting = pending
	}

	return resp, nil
}

func sumCounts(counts map[string]int64) int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	return total
}
