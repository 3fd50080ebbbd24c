// Package session persists the console session (bearer token plus cached user
// profile) per browser namespace and notifies every execution context sharing
// that namespace when it changes.
package session

import (
	"context"
	"errors"
)

// Durable keys inside a namespace. They are always written and cleared together.
const (
	TokenKey = "token"
	UserKey  = "user"
)

var sessionKeys = []string{TokenKey, UserKey}

// ErrWatchUnsupported is returned by backends that cannot deliver remote changes.
var ErrWatchUnsupported = errors.New("session backend does not support watching")

// Change describes a mutation of one namespace.
type Change struct {
	Namespace string   `json:"ns"`
	Keys      []string `json:"keys"`
	Cleared   bool     `json:"cleared"`
	Origin    string   `json:"origin"`
}

// Touches reports whether the change affects the token or user keys.
func (c Change) Touches() bool {
	for _, k := range c.Keys {
		if k == TokenKey || k == UserKey {
			return true
		}
	}
	return false
}

// KV is the durable key-value backend behind the session store.
type KV interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Put writes all values of a namespace; last write wins.
	Put(ctx context.Context, namespace string, values map[string]string) error
	// Delete removes the keys; missing keys are not an error.
	Delete(ctx context.Context, namespace string, keys ...string) error
	// Notify broadcasts a change to every other context watching this backend.
	Notify(ctx context.Context, change Change) error
	// Watch delivers broadcast changes to fn until ctx is done. ready, when
	// non-nil, is called once the subscription is live.
	Watch(ctx context.Context, ready func(), fn func(Change)) error
	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}
