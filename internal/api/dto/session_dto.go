package dto

import "github.com/spec-kit/admin-console/internal/domain"

// LoginRequest payload for POST /login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// SessionResponse describes the browser's session.
type SessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *domain.UserProfile `json:"user,omitempty"`
}

// LoginPageResponse is the login entry point document.
type LoginPageResponse struct {
	Page          string `json:"page"`
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect,omitempty"`
}

// PageResponse is a rendered guarded screen.
type PageResponse struct {
	Page string              `json:"page"`
	Path string              `json:"path"`
	User *domain.UserProfile `json:"user,omitempty"`
}
