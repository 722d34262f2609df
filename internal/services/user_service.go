package services

import (
	"context"
	"strings"

	"relief_backend/internal/logger"
	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/internal/validator"
	"relief_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type UserService interface {
	// Профиль
	GetProfile(db *gorm.DB, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*models.User, error)

	GetUser(db *gorm.DB, actor *models.User, id string) (*models.User, error)
	ListUsers(db *gorm.DB, query *dto.UserListQuery, page, pageSize int) (*dto.UserListResponse, error)

	// Vetting респондентов
	Vet(ctx context.Context, db *gorm.DB, admin *models.User, userID string, req *dto.VetRequest) (*dto.VetResponse, error)
}

type UserServiceImpl struct {
	userRepo            repositories.UserRepository
	notificationService NotificationService
}

func NewUserService(userRepo repositories.UserRepository, notificationService NotificationService) UserService {
	return &UserServiceImpl{
		userRepo:            userRepo,
		notificationService: notificationService,
	}
}

func (s *UserServiceImpl) GetProfile(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, handleUserError(err)
	}
	return user, nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, handleUserError(err)
	}

	fields := map[string]interface{}{}
	set := func(column string, value *string) {
		if value != nil {
			fields[column] = strings.TrimSpace(*value)
		}
	}

	set("name", req.Name)
	set("avatar", req.Avatar)
	set("contact_number", req.ContactNumber)
	set("address", req.Address)
	set("emergency_contact_name", req.EmergencyContactName)
	set("emergency_contact_number", req.EmergencyContactNumber)

	if user.Role == models.UserRoleCommunity {
		set("blood_group", req.BloodGroup)
		set("medical_conditions", req.MedicalConditions)
		set("allergies", req.Allergies)
		set("medications", req.Medications)
	}
	if user.Role.IsResponder() {
		set("organization_name", req.OrganizationName)
		set("government_id", req.GovernmentID)
		set("ngo_registration_number", req.NGORegistrationNumber)
		set("skills", req.Skills)
		set("availability", req.Availability)
	}

	if err := s.userRepo.UpdateProfile(db, userID, fields); err != nil {
		return nil, handleUserError(err)
	}

	logger.CtxInfo(ctx, "profile updated", "user_id", userID, "fields", len(fields))
	return s.GetProfile(db, userID)
}

// GetUser - администратор или сам пользователь
func (s *UserServiceImpl) GetUser(db *gorm.DB, actor *models.User, id string) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return s.GetProfile(db, id)
}

func (s *UserServiceImpl) ListUsers(db *gorm.DB, query *dto.UserListQuery, page, pageSize int) (*dto.UserListResponse, error) {
	filter := repositories.UserFilter{Page: page, PageSize: pageSize}
	if query != nil {
		filter.Role = models.UserRole(query.Role)
		filter.Verified = query.Verified
	}

	users, total, err := s.userRepo.FindWithFilter(db, filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if users == nil {
		users = []models.User{}
	}

	return &dto.UserListResponse{
		Users:      users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// Vet - решение администратора по респонденту: APPROVE, REJECT или REVOKE.
// Старые ACCEPT/DECLINE сводятся к ним через resolveVetDecision.
func (s *UserServiceImpl) Vet(ctx context.Context, db *gorm.DB, admin *models.User, userID string, req *dto.VetRequest) (*dto.VetResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, handleUserError(err)
	}
	if !user.Role.IsResponder() {
		return nil, apperrors.ErrNotResponder
	}

	decision := resolveVetDecision(req.Decision, user.Verified)

	resp := &dto.VetResponse{UserID: user.ID}
	var verified *bool
	var notification *models.Notification

	switch decision {
	case validator.DecisionApprove:
		if user.Verified {
			return nil, apperrors.ErrAlreadyVetted
		}
		verified = boolPtr(true)
		resp.Status = dto.VetStatusApproved
		resp.Message = "User approved"
		notification = newNotification(user.ID, models.NotificationTypeSuccess,
			"Account approved",
			"Your responder account has been verified. You can now receive allocations.",
			nil, nil, map[string]interface{}{"status": dto.VetStatusApproved})

	case validator.DecisionReject:
		if user.Verified {
			return nil, apperrors.ErrAlreadyVetted
		}
		resp.Status = dto.VetStatusDeclined
		resp.Message = "User application declined"
		notification = newNotification(user.ID, models.NotificationTypeAlert,
			"Verification declined",
			"Your responder verification request was declined.",
			nil, nil, map[string]interface{}{"status": dto.VetStatusDeclined})

	case validator.DecisionRevoke:
		if !user.Verified {
			return nil, apperrors.ErrNotVetted
		}
		verified = boolPtr(false)
		resp.Status = dto.VetStatusRevoked
		resp.Message = "User verification revoked"
		notification = newNotification(user.ID, models.NotificationTypeAlert,
			"Verification revoked",
			"Your responder verification has been revoked by an administrator.",
			nil, nil, map[string]interface{}{"status": dto.VetStatusRevoked})

	default:
		return nil, apperrors.NewBadRequestError("Unknown vetting decision")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if verified != nil {
			if err := s.userRepo.SetVerified(tx, user.ID, *verified); err != nil {
				return err
			}
		}
		return s.notificationService.Create(tx, notification)
	})
	if err != nil {
		if _, ok := apperrors.AsAppError(err); ok {
			return nil, err
		}
		return nil, handleUserError(err)
	}

	resp.Verified = user.Verified
	if verified != nil {
		resp.Verified = *verified
	}

	logger.CtxInfo(ctx, "user vetted", "user_id", user.ID, "admin_id", admin.ID, "status", resp.Status)
	s.notificationService.Publish(ctx, notification)
	return resp, nil
}

// resolveVetDecision: ACCEPT -> APPROVE, DECLINE -> REJECT для непроверенного и REVOKE для проверенного
func resolveVetDecision(raw string, verified bool) string {
	decision := validator.NormalizeDecision(raw)
	switch decision {
	case validator.DecisionAccept:
		return validator.DecisionApprove
	case validator.DecisionDecline:
		if verified {
			return validator.DecisionRevoke
		}
		return validator.DecisionReject
	default:
		return decision
	}
}

func boolPtr(b bool) *bool {
	return &b
}
