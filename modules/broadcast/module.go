package broadcast

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
)

// BroadcastModule owns the process-wide Hub. Its lifecycle bounds the
// lifetime of every live connection.
type BroadcastModule struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *BroadcastModule) Start(_ context.Context) error {
	log.Println("[broadcast] Module started - connection registry ready")
	return nil
}

// Stop closes every connection still attached to the hub.
func (m *BroadcastModule) Stop(_ context.Context) error {
	connCount := m.hub.ConnectionCount()
	m.hub.Close()
	log.Printf("[broadcast] Module stopped - %d connections were attached", connCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":  m.hub.ConnectionCount(),
			"online_users": m.hub.OnlineCount(),
		},
	}
}

// GetHub returns the hub for the chat and API modules.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
