package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/domain"
)

func newTestManager(kv KV) *Manager {
	return NewManager(kv, nil, zap.NewNop())
}

func sampleUser() *domain.UserProfile {
	return &domain.UserProfile{
		ID:               "7",
		Name:             "Dana Builder",
		Email:            "dana@example.com",
		Role:             "Project Supervisor",
		AllowedMenuNames: []string{"Dashboard"},
		Permissions:      []domain.RolePermission{{MenuID: 1, CanView: true}},
	}
}

func TestStore_SetSessionAndRead(t *testing.T) {
	ctx := context.Background()
	s := newTestManager(NewMemoryKV()).Store("browser-1")

	assert.False(t, s.IsAuthenticated(ctx))

	require.NoError(t, s.SetSession(ctx, "tok-1", sampleUser()))

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.True(t, s.IsAuthenticated(ctx))

	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleUser(), user)
}

func TestStore_SetSessionOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestManager(NewMemoryKV()).Store("browser-1")

	require.NoError(t, s.SetSession(ctx, "tok-1", sampleUser()))
	require.NoError(t, s.SetSession(ctx, "tok-2", nil))

	token, _ := s.Token(ctx)
	assert.Equal(t, "tok-2", token)
	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestManager(kv).Store("browser-1")
	require.NoError(t, s.SetSession(ctx, "tok-1", sampleUser()))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Equal(t, 0, kv.Len())

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Equal(t, 0, kv.Len())
	user, err := s.User(ctx)
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestStore_MalformedUser(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestManager(kv).Store("browser-1")
	require.NoError(t, kv.Put(ctx, "browser-1", map[string]string{TokenKey: "tok", UserKey: "{not json"}))

	user, err := s.User(ctx)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domain.ErrMalformedUser)
	assert.True(t, s.IsAuthenticated(ctx))
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	s := newTestManager(NewMemoryKV()).Store("browser-1")
	assert.Error(t, s.SetSession(context.Background(), "", sampleUser()))
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryKV())
	a, b := m.Store("a"), m.Store("b")

	require.NoError(t, a.SetSession(ctx, "tok-a", nil))
	assert.True(t, a.IsAuthenticated(ctx))
	assert.False(t, b.IsAuthenticated(ctx))
}

func TestStore_SubscribeLocalChanges(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryKV())
	s := m.Store("browser-1")
	other := m.Store("browser-2")

	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	require.NoError(t, s.SetSession(ctx, "tok", sampleUser()))
	require.NoError(t, other.SetSession(ctx, "tok", nil))
	require.NoError(t, s.Clear(ctx))
	unsubscribe()
	require.NoError(t, s.SetSession(ctx, "tok", nil))

	require.Len(t, got, 2)
	assert.Equal(t, []string{TokenKey, UserKey}, got[0].Keys)
	assert.False(t, got[0].Cleared)
	assert.True(t, got[1].Cleared)
	assert.Equal(t, m.Origin(), got[1].Origin)
}

func TestManager_CrossManagerNotification(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv := NewMemoryKV()
	tabA := newTestManager(kv)
	tabB := newTestManager(kv)
	go func() { _ = tabB.Run(ctx) }()
	<-tabB.Ready()

	var mu sync.Mutex
	var seen []Change
	tabB.Store("browser-1").Subscribe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c)
	})

	require.NoError(t, tabA.Store("browser-1").SetSession(ctx, "tok", sampleUser()))
	require.NoError(t, tabA.Store("browser-1").Clear(ctx))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2 && seen[1].Cleared
	}, time.Second, 10*time.Millisecond)
	assert.False(t, tabB.Store("browser-1").IsAuthenticated(ctx))
}

func TestManager_IgnoresOwnBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newTestManager(NewMemoryKV())
	go func() { _ = m.Run(ctx) }()
	<-m.Ready()

	count := 0
	m.Store("ns").Subscribe(func(Change) { count++ })
	require.NoError(t, m.Store("ns").SetSession(ctx, "tok", nil))

	assert.Equal(t, 1, count)
}

func TestChange_Touches(t *testing.T) {
	assert.True(t, Change{Keys: []string{TokenKey}}.Touches())
	assert.True(t, Change{Keys: []string{"other", UserKey}}.Touches())
	assert.False(t, Change{Keys: []string{"theme"}}.Touches())
}
