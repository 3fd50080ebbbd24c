package auth

import (
	"sync"
	"time"
)

// Revocations remembers token ids that were signed out before expiry.
type Revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

// NewRevocations returns an empty list.
func NewRevocations() *Revocations {
	return &Revocations{ids: make(map[string]time.Time)}
}

// Revoke marks id revoked until expiresAt; entries past expiry are pruned.
func (r *Revocations) Revoke(id string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for k, exp := range r.ids {
		if now.After(exp) {
			delete(r.ids, k)
		}
	}
	r.ids[id] = expiresAt
}

// IsRevoked reports whether id was revoked.
func (r *Revocations) IsRevoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}
