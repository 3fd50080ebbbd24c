package domain

// Menu is a backend-defined unit of navigable functionality.
type Menu struct {
	ID       int64  `json:"id"`
	MenuName string `json:"menuName"`
}

// RolePermission grants CRUD rights on one menu.
type RolePermission struct {
	MenuID    int64 `json:"menuId" validate:"required,gt=0"`
	CanCreate bool  `json:"canCreate"`
	CanView   bool  `json:"canView"`
	CanUpdate bool  `json:"canUpdate"`
	CanDelete bool  `json:"canDelete"`
}

// Role is a named permission set.
type Role struct {
	RoleID      int64            `json:"roleId"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Permissions []RolePermission `json:"permissions,omitempty"`
}

// RoleInput is the create/update payload for roles.
type RoleInput struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description,omitempty" validate:"max=500"`
	Permissions []RolePermission `json:"permissions" validate:"dive"`
}
