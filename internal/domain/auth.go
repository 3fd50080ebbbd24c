package domain

// Session pairs the opaque bearer token with the cached user profile.
type Session struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user,omitempty"`
}

// IsAuthenticated is true exactly when a token is present.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}

// Credentials is the login payload sent to the backend.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
