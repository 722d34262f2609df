package validator

import (
	"log"
	"strings"

	"relief_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// Значения решений в запросах
const (
	DecisionAccept  = "ACCEPT"
	DecisionDecline = "DECLINE"
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
	DecisionRevoke  = "REVOKE"
)

// NormalizeDecision приводит решение к виду констант выше
func NormalizeDecision(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// registerCustomRules регистрирует кастомные функции валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-signup-role", validateSignupRole)
	mustRegister("is-incident-type", validateIncidentType)
	mustRegister("is-incident-status", validateIncidentStatus)
	mustRegister("is-allocation-status", validateAllocationStatus)
	mustRegister("is-allocation-decision", validateAllocationDecision)
	mustRegister("is-vet-decision", validateVetDecision)
	mustRegister("is-notification-type", validateNotificationType)
	mustRegister("is-resource-type", validateNotBlank)
	mustRegister("not-blank", validateNotBlank)
}

// Пустые значения пропускаем везде: для этого есть 'required'.

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.UserRole(value).IsValid()
}

// validateSignupRole - ADMIN при самостоятельной регистрации недоступен
func validateSignupRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	role := models.UserRole(value)
	return role == models.UserRoleCommunity || role.IsResponder()
}

func validateIncidentType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.IncidentType(strings.ToUpper(value)).IsValid()
}

// validateIncidentStatus принимает свободный текст ("in progress"), если он нормализуется в набор
func validateIncidentStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, ok := models.NormalizeIncidentStatus(value)
	return ok
}

func validateAllocationStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.AllocationStatus(value).IsValid()
}

func validateAllocationDecision(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	switch NormalizeDecision(raw) {
	case DecisionAccept, DecisionDecline:
		return true
	default:
		return false
	}
}

// validateVetDecision - APPROVE/REJECT/REVOKE плюс старые ACCEPT/DECLINE
func validateVetDecision(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	switch NormalizeDecision(raw) {
	case DecisionApprove, DecisionReject, DecisionRevoke, DecisionAccept, DecisionDecline:
		return true
	default:
		return false
	}
}

func validateNotificationType(fl validator.FieldLevel) bool {
	switch models.NotificationType(fl.Field().String()) {
	case "", models.NotificationTypeAlert, models.NotificationTypeSuccess, models.NotificationTypeInfo:
		return true
	default:
		return false
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
