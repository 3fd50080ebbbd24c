package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/admin-console/internal/domain"
)

// Store is the session of one browser namespace.
type Store interface {
	Namespace() string
	// Token returns "" when no session exists.
	Token(ctx context.Context) (string, error)
	// User returns nil when absent and domain.ErrMalformedUser when undecodable.
	User(ctx context.Context) (*domain.UserProfile, error)
	SetSession(ctx context.Context, token string, user *domain.UserProfile) error
	Clear(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	// Subscribe calls fn for every change to this namespace, local or remote.
	Subscribe(fn func(Change)) (unsubscribe func())
}

type store struct {
	namespace string
	manager   *Manager
}

func (s *store) Namespace() string { return s.namespace }

func (s *store) Token(ctx context.Context) (string, error) {
	token, _, err := s.manager.kv.Get(ctx, s.namespace, TokenKey)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *store) User(ctx context.Context) (*domain.UserProfile, error) {
	raw, ok, err := s.manager.kv.Get(ctx, s.namespace, UserKey)
	if err != nil || !ok {
		return nil, err
	}
	var user domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedUser, err)
	}
	return &user, nil
}

func (s *store) SetSession(ctx context.Context, token string, user *domain.UserProfile) error {
	if token == "" {
		return fmt.Errorf("set session: empty token")
	}
	values := map[string]string{TokenKey: token}
	keys := []string{TokenKey}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		values[UserKey] = string(raw)
		keys = append(keys, UserKey)
	} else if err := s.manager.kv.Delete(ctx, s.namespace, UserKey); err != nil {
		return err
	}

	if err := s.manager.kv.Put(ctx, s.namespace, values); err != nil {
		return err
	}
	s.manager.announce(ctx, Change{Namespace: s.namespace, Keys: keys})
	return nil
}

func (s *store) Clear(ctx context.Context) error {
	if err := s.manager.kv.Delete(ctx, s.namespace, sessionKeys...); err != nil {
		return err
	}
	s.manager.announce(ctx, Change{Namespace: s.namespace, Keys: sessionKeys, Cleared: true})
	return nil
}

func (s *store) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

func (s *store) Subscribe(fn func(Change)) func() {
	return s.manager.subscribe(s.namespace, fn)
}
