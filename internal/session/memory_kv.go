package session

import (
	"context"
	"sync"
)

// MemoryKV keeps sessions in process memory. Managers sharing one MemoryKV
// see each other's notifications, which is how tests model several tabs.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string]map[string]string
	watchers map[int]func(Change)
	nextID   int
}

// NewMemoryKV creates an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:     make(map[string]map[string]string),
		watchers: make(map[int]func(Change)),
	}
}

func (m *MemoryKV) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[namespace][key]
	return val, ok, nil
}

func (m *MemoryKV) Put(_ context.Context, namespace string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]string, len(values))
		m.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, namespace string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(ns, k)
	}
	if len(ns) == 0 {
		delete(m.data, namespace)
	}
	return nil
}

// Notify calls every watcher synchronously, outside the lock.
func (m *MemoryKV) Notify(_ context.Context, change Change) error {
	m.mu.RLock()
	fns := make([]func(Change), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
	return nil
}

func (m *MemoryKV) Watch(ctx context.Context, ready func(), fn func(Change)) error {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.watchers[id] = fn
	m.mu.Unlock()
	if ready != nil {
		ready()
	}

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Ping(context.Context) error { return nil }

// Len returns the number of namespaces holding data.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
