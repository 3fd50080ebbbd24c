package domain

import "slices"

// UserProfile is the cached identity of the signed-in console user.
type UserProfile struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Role             string           `json:"role"`
	Department       string           `json:"department,omitempty"`
	Avatar           string           `json:"avatar,omitempty"`
	AllowedMenuNames []string         `json:"allowedMenuNames"`
	Permissions      []RolePermission `json:"permissions"`
}

// CanView reports whether menu is among the allowed menu names.
func (u *UserProfile) CanView(menu string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.AllowedMenuNames, menu)
}

// Clone returns a deep copy so callers can hand out profiles without sharing slices.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	out := *u
	out.AllowedMenuNames = slices.Clone(u.AllowedMenuNames)
	out.Permissions = slices.Clone(u.Permissions)
	return &out
}
