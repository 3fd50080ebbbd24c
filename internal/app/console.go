// Package app assembles the console server from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/admin-console/internal/api/http"
	"github.com/spec-kit/admin-console/internal/api/http/handlers"
	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/config"
	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/gate"
	"github.com/spec-kit/admin-console/internal/guard"
	"github.com/spec-kit/admin-console/internal/observability"
	"github.com/spec-kit/admin-console/internal/service"
	"github.com/spec-kit/admin-console/internal/session"
	"github.com/spec-kit/admin-console/internal/worker"
)

// Options are the collaborators of a console.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	KV      session.KV
	// Deps are extra readiness checks, keyed by name.
	Deps map[string]handlers.Pinger
	// HTTPClient overrides the backend transport.
	HTTPClient *http.Client
}

// Console is the assembled server.
type Console struct {
	App      *fiber.App
	Sessions *session.Manager
	Gates    *gate.Registry
	Guard    *guard.Guard
	Provider *service.Provider

	limiter   *httptransport.RateLimiter
	stopAudit func()
	watchDone <-chan struct{}
	logger    *zap.Logger
	cfg       *config.Config
	closeOnce sync.Once
}

// NewConsole wires every component.
func NewConsole(opts Options) (*Console, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mapping, err := guard.LoadMapping(cfg.Guard.MappingFile)
	if err != nil {
		return nil, err
	}
	g := guard.New(mapping, guard.Policy{
		LoginPath:        cfg.Guard.LoginPath,
		AccessDeniedPath: cfg.Guard.AccessDeniedPath,
		EmptyPermissions: guard.EmptyPermissions(cfg.Guard.EmptyPermissions),
	})

	manager := session.NewManager(opts.KV, nil, logger.Named("session"))
	audit := service.NewAuditService(manager.Dispatcher(), logger, manager.Origin())

	clientOpts := []apiclient.Option{
		apiclient.WithMetrics(opts.Metrics),
		apiclient.WithUnauthorizedHandler(func(_ context.Context, store session.Store) {
			logger.Info("session revoked; browser is sent to login",
				zap.String("namespace", store.Namespace()),
				zap.String("login_path", cfg.Guard.LoginPath))
		}),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(opts.HTTPClient))
	}
	factory := apiclient.NewFactory(apiclient.Config{
		BaseURL:     cfg.Backend.BaseURL,
		Timeout:     cfg.Backend.Timeout(),
		RefreshPath: cfg.Backend.RefreshPath,
	}, logger.Named("apiclient"), clientOpts...)

	validate := validator.New()
	provider := service.NewProvider(manager, factory, validate, MenuAuditor(mapping, logger), logger.Named("auth"))
	gateLogger := logger.Named("gate")
	registry := gate.NewRegistry(func(ctx context.Context, ns string) *gate.Gate {
		services := provider.For(ns)
		return gate.New(ctx, services.Store, services.Auth, gateLogger)
	}, cfg.Session.GateIdle())

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		// Routing must agree with the guard's path matching.
		CaseSensitive: true,
		StrictRouting: true,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:    logger,
		Metrics:   opts.Metrics,
		Timeout:   cfg.App.RequestTimeout(),
		LoginPath: cfg.Guard.LoginPath,
	})

	deps := map[string]handlers.Pinger{"sessions": manager}
	for name, dep := range opts.Deps {
		deps[name] = dep
	}
	limiter := httptransport.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Session: handlers.NewSessionHandler(registry, validate, cfg.Guard.LoginPath, logger),
		Pages:   handlers.NewPagesHandler(mapping),
		Roles:   handlers.NewRolesHandler(provider),
		Mapping: mapping,
		Cookie: httptransport.SessionCookie(httptransport.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Session.TTL(),
		}),
		Guard:        httptransport.GuardMiddleware(registry, g, opts.Metrics, logger.Named("guard")),
		LoginLimiter: limiter,
		Metrics:      opts.Metrics,
		LoginPath:    cfg.Guard.LoginPath,
		DeniedPath:   cfg.Guard.AccessDeniedPath,
	})

	return &Console{
		App:       app,
		Sessions:  manager,
		Gates:     registry,
		Guard:     g,
		Provider:  provider,
		limiter:   limiter,
		stopAudit: worker.StartAuditWorker(audit),
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// Start runs the cross-instance session watcher until ctx is done.
func (c *Console) Start(ctx context.Context) {
	c.watchDone = worker.StartSessionWatcher(ctx, c.Sessions, c.logger)
}

// Listen serves HTTP on the configured address.
func (c *Console) Listen() error {
	c.logger.Info("console listening", zap.String("addr", c.cfg.App.Addr()))
	return c.App.Listen(c.cfg.App.Addr())
}

// Close stops the server and background work. The watcher stops with the
// context given to Start.
func (c *Console) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// Closing the gates ends open event streams so shutdown does not wait on them.
		c.Gates.Close()
		err = c.App.Shutdown()
		c.limiter.Close()
		c.stopAudit()
	})
	return err
}

// MenuAuditor logs, once per process, mapped route titles the backend menu
// list does not define.
func MenuAuditor(mapping *guard.Mapping, logger *zap.Logger) service.MenuAudit {
	var once sync.Once
	return func(menus []domain.Menu) {
		once.Do(func() {
			missing := mapping.MissingTitles(menus)
			if len(missing) > 0 {
				logger.Warn("route titles missing from backend menus", zap.Strings("titles", missing))
				return
			}
			logger.Info("route titles match backend menus", zap.Int("menus", len(menus)))
		})
	}
}

// CheckMenus compares the route table with the menus an account sees.
func CheckMenus(ctx context.Context, cfg *config.Config, email, password string, logger *zap.Logger) ([]string, error) {
	mapping, err := guard.LoadMapping(cfg.Guard.MappingFile)
	if err != nil {
		return nil, err
	}
	manager := session.NewManager(session.NewMemoryKV(), nil, logger)
	factory := apiclient.NewFactory(apiclient.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout()}, logger)
	services := service.NewProvider(manager, factory, nil, nil, logger).For("check-menus")

	if _, err := services.Auth.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer services.Auth.Logout(context.WithoutCancel(ctx))

	menus, err := services.Roles.ListMenus(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return mapping.MissingTitles(menus), nil
}
