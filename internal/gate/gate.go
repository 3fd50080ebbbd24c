// Package gate keeps a reactive view of one namespace's session for the UI
// layer and follows changes made by other tabs.
package gate

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/session"
)

// State is the reactive auth state.
type State struct {
	Authenticated bool                `json:"authenticated"`
	User          *domain.UserProfile `json:"user,omitempty"`
}

// Authenticator is the part of the auth service the gate drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Logout(ctx context.Context)
}

const syncTimeout = 5 * time.Second

// Gate holds State for one namespace.
type Gate struct {
	store  session.Store
	auth   Authenticator
	logger *zap.Logger

	mu       sync.RWMutex
	state    State
	epoch    uint64
	watchers map[int]chan State
	nextID   int
	closed   bool

	unsubscribe func()
}

// New builds a gate initialised from the store and subscribed to its changes.
func New(ctx context.Context, store session.Store, auth Authenticator, logger *zap.Logger) *Gate {
	g := &Gate{
		store:    store,
		auth:     auth,
		logger:   logger.With(zap.String("namespace", store.Namespace())),
		watchers: make(map[int]chan State),
	}
	g.state = g.read(ctx)
	g.unsubscribe = store.Subscribe(g.onChange)
	return g
}

// State returns a snapshot of the current state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return State{Authenticated: g.state.Authenticated, User: g.state.User.Clone()}
}

// CheckAuth re-reads the store, updates the state and returns the authenticated flag.
func (g *Gate) CheckAuth(ctx context.Context) bool {
	state := g.read(ctx)
	g.apply(state)
	return state.Authenticated
}

// Login delegates to the auth service. On failure the state is reset to
// unauthenticated and the error returned. A login that completes after a
// logout was observed is discarded.
func (g *Gate) Login(ctx context.Context, email, password string) (*domain.UserProfile, error) {
	g.mu.RLock()
	startEpoch := g.epoch
	g.mu.RUnlock()

	sess, err := g.auth.Login(ctx, email, password)
	if err != nil {
		g.apply(State{})
		return nil, err
	}

	g.mu.RLock()
	superseded := g.epoch != startEpoch
	g.mu.RUnlock()
	if superseded {
		g.logger.Info("discarding login completed after logout")
		if clearErr := g.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			g.logger.Error("clear superseded session failed", zap.Error(clearErr))
		}
		g.apply(State{})
		return nil, domain.ErrSessionSuperseded
	}

	g.apply(State{Authenticated: true, User: sess.User})
	return sess.User.Clone(), nil
}

// Logout signs out. The state ends unauthenticated whatever the auth service does.
func (g *Gate) Logout(ctx context.Context) {
	defer func() {
		g.mu.Lock()
		g.epoch++
		g.mu.Unlock()
		g.apply(State{})
	}()
	g.auth.Logout(ctx)
}

// Watch streams state changes. The current state is delivered first. Slow
// readers miss intermediate states but always see the latest one.
func (g *Gate) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	g.nextID++
	id := g.nextID
	g.watchers[id] = ch
	ch <- State{Authenticated: g.state.Authenticated, User: g.state.User.Clone()}
	g.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if c, ok := g.watchers[id]; ok {
				delete(g.watchers, id)
				close(c)
			}
		})
	}
}

// WatcherCount returns the number of live watchers.
func (g *Gate) WatcherCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.watchers)
}

// Close unsubscribes from the store and ends every watch.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	for id, ch := range g.watchers {
		delete(g.watchers, id)
		close(ch)
	}
	g.mu.Unlock()
	g.unsubscribe()
}

func (g *Gate) onChange(change session.Change) {
	if !change.Touches() {
		return
	}
	if change.Cleared {
		g.mu.Lock()
		g.epoch++
		g.mu.Unlock()
	}
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	g.apply(g.read(ctx))
}

// read derives State from the store. A malformed user record keeps the
// session authenticated with no profile.
func (g *Gate) read(ctx context.Context) State {
	token, err := g.store.Token(ctx)
	if err != nil {
		g.logger.Warn("read session token failed", zap.Error(err))
		return State{}
	}
	if token == "" {
		return State{}
	}
	user, err := g.store.User(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedUser) {
			g.logger.Warn("stored user profile is malformed", zap.Error(err))
		} else {
			g.logger.Warn("read session user failed", zap.Error(err))
		}
		user = nil
	}
	return State{Authenticated: true, User: user}
}

// apply stores state and notifies watchers when it differs from the current one.
func (g *Gate) apply(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if reflect.DeepEqual(g.state, state) {
		return
	}
	g.state = state
	for _, ch := range g.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- State{Authenticated: state.Authenticated, User: state.User.Clone()}
	}
}
