package chat

import (
	"context"
	"fmt"

	"github.com/example/pulsechat/events"
	"github.com/example/pulsechat/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module is the real-time chat core: presence, message relay and typing
// signals over the connection registry.
type Module struct {
	service  *Service
	registry Registry
	store    Store
	eventBus mono.EventBus
	opts     Options
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.DependentModule     = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(opts Options, logger types.Logger) *Module {
	return &Module{
		opts:   opts,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"store"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "store" {
		m.store = store.NewAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserStatusChangedV1.ToBase(),
	}
}

// SetRegistry sets the connection registry (called from main.go).
func (m *Module) SetRegistry(registry Registry) {
	m.registry = registry
}

// Start builds the chat service once its collaborators are wired.
func (m *Module) Start(_ context.Context) error {
	if m.registry == nil {
		return fmt.Errorf("connection registry dependency not set")
	}
	if m.store == nil {
		return fmt.Errorf("store dependency not set")
	}

	m.service = NewService(m.registry, m.store, eventMirror{bus: m.eventBus}, m.logger, m.opts)
	m.logger.Info("Chat module started",
		"requireOnlineBeforeJoin", m.opts.RequireOnlineBeforeJoin)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped")
	return nil
}

// Service returns the chat service. It is nil until Start.
func (m *Module) Service() *Service {
	return m.service
}
