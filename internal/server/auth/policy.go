package auth

import (
	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
)

// RequireAdmin allows only the admin role.
func RequireAdmin(role models.Role) error {
	if role != models.RoleAdmin {
		return common.ErrForbidden
	}
	return nil
}

// CanChangeRole decides whether actor may give targetID the role newRole.
// otherAdminExists must report whether a profile other than the target
// already holds admin.
func CanChangeRole(actor Principal, targetID string, newRole models.Role, otherAdminExists bool) error {
	if !newRole.Valid() {
		return common.ErrorInvalidRole
	}
	if actor.UserID == targetID {
		return common.ErrSelfRoleChange
	}
	if err := RequireAdmin(actor.Role); err != nil {
		return err
	}
	if newRole == models.RoleAdmin && otherAdminExists {
		return common.ErrAdminAlreadyExists
	}
	return nil
}

// CanDelete decides whether actor may delete the profile targetID whose
// current role is targetRole. Admin profiles are never deletable.
func CanDelete(actor Principal, targetID string, targetRole models.Role) error {
	if actor.UserID == targetID {
		return common.ErrSelfDelete
	}
	if err := RequireAdmin(actor.Role); err != nil {
		return err
	}
	if targetRole == models.RoleAdmin {
		return common.ErrAdminProtected
	}
	return nil
}
