package auth

import "relief_backend/internal/models"

// RBAC разрешения
const (
	PermIncidentCreate   = "incidents:create"
	PermIncidentManage   = "incidents:manage"
	PermIncidentReadAll  = "incidents:read:all"
	PermStatusReport     = "incidents:status-report"
	PermAllocationCreate = "allocations:create"
	PermAllocationDecide = "allocations:decide"
	PermUsersVet         = "users:vet"
	PermUsersRead        = "users:read"
)

var responderPermissions = []string{
	PermIncidentReadAll,
	PermStatusReport,
	PermAllocationDecide,
}

// Permissions список разрешений по ролям
var Permissions = map[models.UserRole][]string{
	models.UserRoleAdmin: {
		PermIncidentManage,
		PermIncidentReadAll,
		PermStatusReport,
		PermAllocationCreate,
		PermUsersVet,
		PermUsersRead,
	},
	models.UserRoleCommunity: {
		PermIncidentCreate,
	},
	models.UserRoleVolunteer:  responderPermissions,
	models.UserRoleNGO:        responderPermissions,
	models.UserRoleGovernment: responderPermissions,
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role models.UserRole, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
