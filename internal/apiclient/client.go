// Package apiclient is the console's HTTP client for the backend REST API.
// It attaches the session's bearer token and turns 401 responses into a
// forced sign-out.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/observability"
	"github.com/spec-kit/admin-console/internal/session"
)

// Config controls outbound requests.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RefreshPath enables single-flight token refresh on 401 when non-empty.
	RefreshPath string
}

// UnauthorizedHandler runs after a 401 cleared the session. It is the hook that
// sends the user back to the login entry point.
type UnauthorizedHandler func(ctx context.Context, store session.Store)

// Option customizes a Factory.
type Option func(*Factory)

// WithHTTPClient overrides the shared transport.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Factory) { f.httpClient = c }
}

// WithUnauthorizedHandler installs the forced sign-out hook.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(f *Factory) { f.onUnauthorized = h }
}

// WithMetrics records upstream calls and forced logouts.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

var errSessionCleared = errors.New("session cleared during token refresh")

// Factory holds what every session's client shares.
type Factory struct {
	cfg            Config
	httpClient     *http.Client
	refreshGroup   singleflight.Group
	onUnauthorized UnauthorizedHandler
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewFactory builds a factory.
func NewFactory(cfg Config, logger *zap.Logger, opts ...Option) *Factory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	f := &Factory{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// For returns a client bound to one session.
func (f *Factory) For(store session.Store) *Client {
	return &Client{factory: f, store: store}
}

// Client issues requests on behalf of one session.
type Client struct {
	factory *Factory
	store   session.Store
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Body   any
	Out    any
	// BearerToken replaces the stored token when non-empty.
	BearerToken string
	// SkipUnauthorizedHook turns a 401 into a plain HTTPError without touching the session.
	SkipUnauthorizedHook bool
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Out: out})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Out: out})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Out: out})
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Store returns the session this client is bound to.
func (c *Client) Store() session.Store { return c.store }

// Do sends req. A 401 clears the session, runs the unauthorized hook and
// returns *domain.AuthorizationError; the caller always sees the failure.
func (c *Client) Do(ctx context.Context, req Request) error {
	token := req.BearerToken
	if token == "" {
		stored, err := c.store.Token(ctx)
		if err != nil {
			c.factory.logger.Warn("read session token failed", zap.Error(err))
		}
		token = stored
	}

	resp, err := c.send(ctx, req, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized {
		if req.SkipUnauthorizedHook {
			return &HTTPError{StatusCode: resp.status, Message: resp.message()}
		}
		if c.factory.cfg.RefreshPath != "" && token != "" && req.BearerToken == "" {
			fresh, refreshErr := c.refresh(ctx, token)
			switch {
			case refreshErr == nil:
				resp, err = c.send(ctx, req, fresh)
				if err != nil {
					return err
				}
			case ctx.Err() != nil:
				// The caller went away; the session is left as it is.
				return ctx.Err()
			default:
				c.factory.logger.Info("token refresh failed", zap.Error(refreshErr))
			}
		}
		if resp.status == http.StatusUnauthorized {
			return c.unauthorized(ctx, req.Path, resp.message())
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return &HTTPError{StatusCode: resp.status, Message: resp.message()}
	}

	if req.Out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, req.Out); err != nil {
			return fmt.Errorf("decode %s response: %w", req.Path, err)
		}
	}
	return nil
}

type response struct {
	status int
	body   []byte
}

// message extracts the backend's {"message": ...} field, falling back to the status text.
func (r response) message() string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(r.status)
}

func (c *Client) send(ctx context.Context, req Request, token string) (response, error) {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return response{}, fmt.Errorf("encode %s request: %w", req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.factory.cfg.BaseURL+req.Path, body)
	if err != nil {
		return response{}, fmt.Errorf("build %s request: %w", req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.factory.httpClient.Do(httpReq)
	if err != nil {
		c.factory.metrics.RecordUpstream(req.Method, 0)
		return response{}, &domain.NetworkError{Op: req.Method + " " + req.Path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.factory.metrics.RecordUpstream(req.Method, 0)
		return response{}, &domain.NetworkError{Op: req.Method + " " + req.Path, Err: err}
	}
	c.factory.metrics.RecordUpstream(req.Method, resp.StatusCode)
	return response{status: resp.StatusCode, body: raw}, nil
}

func (c *Client) unauthorized(ctx context.Context, path, message string) error {
	// The caller's context may already be cancelled; the clear must still happen.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := c.store.Clear(cleanupCtx); err != nil {
		c.factory.logger.Error("clear session after 401 failed",
			zap.String("namespace", c.store.Namespace()),
			zap.Error(err))
	}
	c.factory.metrics.RecordForcedLogout()
	c.factory.logger.Info("session revoked by backend",
		zap.String("namespace", c.store.Namespace()),
		zap.String("path", path))
	if c.factory.onUnauthorized != nil {
		c.factory.onUnauthorized(cleanupCtx, c.store)
	}
	return &domain.AuthorizationError{Path: path, Message: message}
}

// refresh exchanges the current token for a new one. Concurrent callers of
// the same namespace share one in-flight refresh and its result. The refresh
// outlives a cancelled caller so the remaining waiters still get a token.
func (c *Client) refresh(ctx context.Context, token string) (string, error) {
	key := c.store.Namespace()
	ch := c.factory.refreshGroup.DoChan(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.factory.cfg.Timeout)
		defer cancel()

		// Another caller may have refreshed while this one waited for its response.
		if current, err := c.store.Token(rctx); err == nil && current != "" && current != token {
			return current, nil
		}

		var out struct {
			Token string `json:"token"`
		}
		resp, err := c.send(rctx, Request{Method: http.MethodPost, Path: c.factory.cfg.RefreshPath}, token)
		if err != nil {
			return nil, err
		}
		if resp.status != http.StatusOK {
			return nil, &HTTPError{StatusCode: resp.status, Message: resp.message()}
		}
		if err := json.Unmarshal(resp.body, &out); err != nil || out.Token == "" {
			return nil, errors.New("refresh response carried no token")
		}

		// A sign-out or a new login during the refresh wins over its result.
		current, err := c.store.Token(rctx)
		if err != nil {
			return nil, err
		}
		if current == "" {
			return nil, errSessionCleared
		}
		if current != token {
			return current, nil
		}

		user, err := c.store.User(rctx)
		if err != nil {
			user = nil
		}
		if err := c.store.SetSession(rctx, out.Token, user); err != nil {
			return nil, err
		}
		return out.Token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
