package service

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/session"
)

// SessionServices bundles the collaborators bound to one browser namespace.
type SessionServices struct {
	Store session.Store
	API   *apiclient.Client
	Auth  *AuthService
	Roles *RoleService
}

// Provider builds SessionServices on demand; they are cheap and stateless
// beyond the shared store, factory and validator.
type Provider struct {
	sessions  *session.Manager
	api       *apiclient.Factory
	validate  *validator.Validate
	menuAudit MenuAudit
	logger    *zap.Logger
}

// NewProvider wires a provider.
func NewProvider(sessions *session.Manager, api *apiclient.Factory, validate *validator.Validate, menuAudit MenuAudit, logger *zap.Logger) *Provider {
	if validate == nil {
		validate = validator.New()
	}
	return &Provider{sessions: sessions, api: api, validate: validate, menuAudit: menuAudit, logger: logger}
}

// For returns the services of namespace.
func (p *Provider) For(namespace string) *SessionServices {
	store := p.sessions.Store(namespace)
	client := p.api.For(store)
	roles := NewRoleService(client, p.validate)
	auth := NewAuthService(AuthDependencies{
		Store:     store,
		API:       client,
		Roles:     roles,
		MenuAudit: p.menuAudit,
		Logger:    p.logger,
	})
	return &SessionServices{Store: store, API: client, Auth: auth, Roles: roles}
}
