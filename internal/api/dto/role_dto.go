package dto

import "github.com/spec-kit/admin-console/internal/domain"

// PermissionRequest grants rights on one menu.
type PermissionRequest struct {
	MenuID    int64 `json:"menuId"`
	CanCreate bool  `json:"canCreate"`
	CanView   bool  `json:"canView"`
	CanUpdate bool  `json:"canUpdate"`
	CanDelete bool  `json:"canDelete"`
}

// RoleRequest payload for role create and update.
type RoleRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Permissions []PermissionRequest `json:"permissions"`
}

// ToInput converts the request to the role service input.
func (r RoleRequest) ToInput() domain.RoleInput {
	perms := make([]domain.RolePermission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, domain.RolePermission{
			MenuID:    p.MenuID,
			CanCreate: p.CanCreate,
			CanView:   p.CanView,
			CanUpdate: p.CanUpdate,
			CanDelete: p.CanDelete,
		})
	}
	return domain.RoleInput{Name: r.Name, Description: r.Description, Permissions: perms}
}

// DataResponse wraps payloads as {"data": ...}.
type DataResponse struct {
	Data any `json:"data"`
}
