package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/example/pulsechat/modules/broadcast"
	"github.com/example/pulsechat/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

type stubChat struct{}

func (stubChat) Service() *chat.Service { return nil }

// fakePresence serves mirrored presence from a map.
type fakePresence struct {
	seen map[string]time.Time
	err  error
}

func (f *fakePresence) GetPresence(_ context.Context, userID string) (*domain.Presence, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	lastSeen, ok := f.seen[userID]
	if !ok {
		return nil, false, nil
	}
	return &domain.Presence{UserID: userID, LastSeen: lastSeen}, true, nil
}

type unhealthyModule struct{}

func (unhealthyModule) Name() string                  { return "store" }
func (unhealthyModule) Start(_ context.Context) error { return nil }
func (unhealthyModule) Stop(_ context.Context) error  { return nil }
func (unhealthyModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{Healthy: false, Message: "database unreachable"}
}

func newTestModule(t *testing.T) (*APIModule, *broadcast.Hub) {
	t.Helper()
	hub := broadcast.NewHub()
	m := NewModule(Config{}, &mockLogger{})
	m.SetHub(hub)
	m.SetChat(stubChat{})
	m.presence = &fakePresence{}
	m.app = m.newApp()
	return m, hub
}

func TestNewModule_Defaults(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.Equal(t, "api", m.Name())
	assert.Equal(t, "3000", m.config.Port)
	assert.Equal(t, broadcast.DefaultQueueSize, m.config.SendQueueSize)
	assert.NotEmpty(t, m.config.CORSAllowedOrigins)
}

func TestStart_RequiresCollaborators(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.Error(t, m.Start(context.Background()))

	m.SetHub(broadcast.NewHub())
	assert.Error(t, m.Start(context.Background()))

	m.SetChat(stubChat{})
	assert.Error(t, m.Start(context.Background()), "store dependency is required")
}

func TestPresenceHandler(t *testing.T) {
	m, hub := newTestModule(t)
	require.NoError(t, hub.Attach(broadcast.NewConn("c-1", 4, nil)))
	require.NoError(t, hub.Attach(broadcast.NewConn("c-2", 4, nil)))
	require.NoError(t, hub.Attach(broadcast.NewConn("c-3", 4, nil)))
	_, err := hub.Register("bob", "c-2", nil)
	require.NoError(t, err)
	_, err = hub.Register("alice", "c-1", nil)
	require.NoError(t, err)

	resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body PresenceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"alice", "bob"}, body.OnlineUsers)
	assert.Equal(t, 2, body.Online)
	assert.Equal(t, 3, body.Connections)
}

func TestPresenceHandler_Empty(t *testing.T) {
	m, _ := newTestModule(t)

	resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, []any{}, raw["online_users"])
}

func TestHealthHandler(t *testing.T) {
	m, _ := newTestModule(t)
	m.AddHealthCheck("broadcast", broadcast.NewModule())

	resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Contains(t, body.Modules, "api")
	assert.Contains(t, body.Modules, "broadcast")
}

func TestHealthHandler_Degraded(t *testing.T) {
	m, _ := newTestModule(t)
	m.AddHealthCheck("store", unhealthyModule{})

	resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "database unreachable", body.Modules["store"].Message)
}

func TestWebSocketRoute_RequiresUpgrade(t *testing.T) {
	m, _ := newTestModule(t)

	resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestUserPresenceHandler(t *testing.T) {
	m, hub := newTestModule(t)
	seen := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	m.presence = &fakePresence{seen: map[string]time.Time{"alice": seen, "carol": seen}}

	require.NoError(t, hub.Attach(broadcast.NewConn("c-1", 4, nil)))
	require.NoError(t, hub.Attach(broadcast.NewConn("c-2", 4, nil)))
	_, err := hub.Register("alice", "c-1", nil)
	require.NoError(t, err)
	_, err = hub.Register("bob", "c-2", nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantOnline bool
		wantSeen   bool
	}{
		{name: "online and mirrored", path: "/api/v1/presence/alice", wantStatus: http.StatusOK, wantOnline: true, wantSeen: true},
		{name: "online before the mirror caught up", path: "/api/v1/presence/bob", wantStatus: http.StatusOK, wantOnline: true},
		{name: "offline with last seen", path: "/api/v1/presence/carol", wantStatus: http.StatusOK, wantSeen: true},
		{name: "never seen", path: "/api/v1/presence/dave", wantStatus: http.StatusNotFound},
		{name: "invalid id", path: "/api/v1/presence/a_b", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body UserPresenceResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantOnline, body.Online)
			if tt.wantSeen {
				require.NotNil(t, body.LastSeen)
				assert.True(t, body.LastSeen.Equal(seen))
			} else {
				assert.Nil(t, body.LastSeen)
			}
		})
	}
}

func TestUserPresenceHandler_StoreUnavailable(t *testing.T) {
	m, hub := newTestModule(t)
	m.presence = &fakePresence{err: errors.New("store down")}

	require.NoError(t, hub.Attach(broadcast.NewConn("c-1", 4, nil)))
	_, err := hub.Register("alice", "c-1", nil)
	require.NoError(t, err)

	resp, err := m.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presence/alice", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "live status is served without the mirror")

	resp, err = m.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/presence/bob", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
