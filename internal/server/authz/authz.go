// Package authz contains the pure authorization decision functions. They
// take the resolved session subject and the resource, and return nil or a
// sentinel error; they never touch storage.
//
// A nil subject always yields common.ErrorUnauthorized (no valid session),
// which is distinct from common.ErrorForbidden (valid session, insufficient
// rights).
package authz

import (
	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// CanActAsAdmin reports whether the subject holds the admin role.
func CanActAsAdmin(subject *models.UserInfo) bool {
	return subject != nil && subject.Admin
}

// CanMutateUser decides whether subject may apply change to the target user.
// Self-service fields (name, email, password) are permitted for the account
// owner; the admin flag may only be changed by administrators.
func CanMutateUser(subject *models.UserInfo, targetID string, change *models.UserChange) error {
	if subject == nil {
		return common.ErrorUnauthorized
	}
	if CanActAsAdmin(subject) {
		return nil
	}
	if subject.ID != targetID {
		return common.ErrorForbidden
	}
	if change != nil && change.Admin != nil {
		// Owners cannot grant themselves the role.
		return common.ErrorForbidden
	}
	return nil
}

// CanAccessFile decides whether subject may read or mutate the file.
// Share-link access (shared=true) bypasses ownership entirely.
func CanAccessFile(subject *models.UserInfo, file *models.File, shared bool) error {
	if shared {
		return nil
	}
	if subject == nil {
		return common.ErrorUnauthorized
	}
	if CanActAsAdmin(subject) || subject.ID == file.UserID {
		return nil
	}
	return common.ErrorForbidden
}

// CanActOnUser decides whether subject may operate on the target user's file
// namespace (list, upload on behalf). Owner and admins qualify.
func CanActOnUser(subject *models.UserInfo, targetID string) error {
	if subject == nil {
		return common.ErrorUnauthorized
	}
	if CanActAsAdmin(subject) || subject.ID == targetID {
		return nil
	}
	return common.ErrorForbidden
}
