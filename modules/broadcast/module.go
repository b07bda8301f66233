package broadcast

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule owns the websocket Hub and its lifecycle.
type BroadcastModule struct {
	hub    *Hub
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(sendBuffer int, logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		hub:    NewHub(sendBuffer, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *BroadcastModule) Start(_ context.Context) error {
	m.logger.Info("Broadcast module started", "sendBuffer", m.hub.bufferSize)
	return nil
}

// Stop closes every client connection and waits for their write pumps.
func (m *BroadcastModule) Stop(ctx context.Context) error {
	clientCount := m.hub.ClientCount()
	if err := m.hub.Shutdown(ctx); err != nil {
		return fmt.Errorf("broadcast hub shutdown: %w", err)
	}
	m.logger.Info("Broadcast module stopped", "clientsClosed", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"delivered_frames":  m.hub.Delivered(),
			"dropped_clients":   m.hub.Dropped(),
		},
	}
}

// GetHub returns the websocket hub for the chat and api modules.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
