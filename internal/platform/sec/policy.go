// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "github.com/taibuivan/yomira-auth/internal/platform/apperr"

// # Capability Policy

// Action is an operation an actor attempts on a user record.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// ActionManage covers status, role and account flag changes.
	ActionManage Action = "manage"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role UserRole
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role.AtLeast(RoleAdmin)
}

// Resource identifies the record an action targets.
// OwnerID is empty for collection-level actions.
type Resource struct {
	OwnerID string
}

// Authorize decides whether actor may perform action on resource.
//
// Administrators may do everything. Any authenticated actor may create.
// Reading and updating are limited to the actor's own record. Listing,
// deletion and management are administrator-only.
func Authorize(actor Actor, action Action, resource Resource) error {
	if actor.ID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	if actor.IsAdmin() {
		return nil
	}

	switch action {
	case ActionCreate:
		return nil
	case ActionRead, ActionUpdate:
		if resource.OwnerID != "" && resource.OwnerID == actor.ID {
			return nil
		}
		return apperr.Forbidden("You can only access your own account")
	default:
		return apperr.Forbidden("Administrator role required")
	}
}
