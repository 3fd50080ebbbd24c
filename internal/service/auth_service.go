package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/session"
)

// Backend auth endpoints.
const (
	loginPath  = "/api/auth/login"
	logoutPath = "/auth/logout"
)

// MenuAudit receives every menu list fetched during login.
type MenuAudit func(menus []domain.Menu)

// AuthService coordinates login, logout and session queries for one session.
type AuthService struct {
	store     session.Store
	api       *apiclient.Client
	roles     *RoleService
	menuAudit MenuAudit
	logger    *zap.Logger
}

// AuthDependencies encapsulates the collaborators of the auth service.
type AuthDependencies struct {
	Store     session.Store
	API       *apiclient.Client
	Roles     *RoleService
	MenuAudit MenuAudit
	Logger    *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	roles := deps.Roles
	if roles == nil {
		roles = NewRoleService(deps.API, nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:     deps.Store,
		api:       deps.API,
		roles:     roles,
		menuAudit: deps.MenuAudit,
		logger:    logger.With(zap.String("namespace", deps.Store.Namespace())),
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type loginResponse struct {
	Token      string     `json:"token"`
	ID         flexString `json:"id"`
	UserID     flexString `json:"userId"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       flexString `json:"role"`
	Department string     `json:"department"`
	Avatar     string     `json:"avatar"`
	Message    string     `json:"message"`
}

// Login authenticates against the backend, resolves menu permissions on a
// best-effort basis and persists the session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp loginResponse
	err := s.api.Do(ctx, apiclient.Request{
		Method:               http.MethodPost,
		Path:                 loginPath,
		Body:                 domain.Credentials{Email: email, Password: password},
		Out:                  &resp,
		SkipUnauthorizedHook: true,
	})
	if err != nil {
		var httpErr *apiclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return nil, s.rejectLogin(ctx, httpErr.Message)
		}
		return nil, err
	}
	if resp.Token == "" {
		return nil, s.rejectLogin(ctx, resp.Message)
	}

	user := &domain.UserProfile{
		ID:               string(resp.ID),
		Name:             resp.Name,
		Email:            resp.Email,
		Role:             string(resp.Role),
		Department:       resp.Department,
		Avatar:           resp.Avatar,
		AllowedMenuNames: []string{},
		Permissions:      []domain.RolePermission{},
	}
	if user.ID == "" {
		user.ID = string(resp.UserID)
	}
	if user.Email == "" {
		user.Email = email
	}

	allowed, perms, err := s.resolvePermissions(ctx, resp.Token, user.Role)
	if err != nil {
		s.logger.Warn("permission resolution failed; continuing without menu restrictions",
			zap.String("role", user.Role),
			zap.Error(err))
	} else {
		if allowed != nil {
			user.AllowedMenuNames = allowed
		}
		if perms != nil {
			user.Permissions = perms
		}
	}

	// A login whose caller has gone away must not resurrect a session.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.store.SetSession(ctx, resp.Token, user); err != nil {
		return nil, err
	}
	s.logger.Info("login succeeded",
		zap.String("email", user.Email),
		zap.String("role", user.Role),
		zap.Int("allowed_menus", len(user.AllowedMenuNames)))
	return &domain.Session{Token: resp.Token, User: user}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, message string) error {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("clear session after rejected login failed", zap.Error(err))
	}
	if strings.TrimSpace(message) == "" {
		message = "invalid email or password"
	}
	return &domain.AuthenticationError{Message: message}
}

// Logout notifies the backend on a best-effort basis and always clears the
// local session afterwards.
func (s *AuthService) Logout(ctx context.Context) {
	cleanupCtx := context.WithoutCancel(ctx)
	if s.store.IsAuthenticated(cleanupCtx) {
		err := s.api.Do(ctx, apiclient.Request{
			Method:               http.MethodPost,
			Path:                 logoutPath,
			SkipUnauthorizedHook: true,
		})
		switch {
		case err == nil:
		case apiclient.IsStatus(err, http.StatusUnauthorized):
			s.logger.Debug("backend token already revoked")
		default:
			s.logger.Warn("backend logout failed", zap.Error(err))
		}
	}
	if err := s.store.Clear(cleanupCtx); err != nil {
		s.logger.Error("clear session on logout failed", zap.Error(err))
	}
}

// CurrentUser returns the cached profile, nil when signed out.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	return s.store.User(ctx)
}

// Token returns the stored bearer token.
func (s *AuthService) Token(ctx context.Context) (string, error) {
	return s.store.Token(ctx)
}

// IsAuthenticated reports whether a token is stored.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	return s.store.IsAuthenticated(ctx)
}

// Roles exposes the role accessor bound to the same session.
func (s *AuthService) Roles() *RoleService {
	return s.roles
}
