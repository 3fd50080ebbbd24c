package gate

import (
	"context"
	"sync"
	"time"
)

// Factory creates the gate of a namespace.
type Factory func(ctx context.Context, namespace string) *Gate

type entry struct {
	gate     *Gate
	lastSeen time.Time
}

// Registry keeps one gate per namespace and evicts idle gates that nobody watches.
type Registry struct {
	mu      sync.Mutex
	gates   map[string]*entry
	factory Factory
	idle    time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewRegistry starts a registry with a background cleanup loop.
func NewRegistry(factory Factory, idle time.Duration) *Registry {
	r := &Registry{
		gates:   make(map[string]*entry),
		factory: factory,
		idle:    idle,
		stop:    make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Get returns the gate of namespace, creating it on first use.
func (r *Registry) Get(ctx context.Context, namespace string) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.gates[namespace]; ok {
		e.lastSeen = time.Now()
		return e.gate
	}
	g := r.factory(ctx, namespace)
	r.gates[namespace] = &entry{gate: g, lastSeen: time.Now()}
	return g
}

// Len returns the number of live gates.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}

// Close stops the cleanup loop and closes every gate.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
	r.mu.Lock()
	defer r.mu.Unlock()
	for ns, e := range r.gates {
		e.gate.Close()
		delete(r.gates, ns)
	}
}

func (r *Registry) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ns, e := range r.gates {
		if now.Sub(e.lastSeen) > r.idle && e.gate.WatcherCount() == 0 {
			e.gate.Close()
			delete(r.gates, ns)
		}
	}
}

func (r *Registry) cleanupLoop() {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}
