package presence

import (
	"context"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/modules/relay"
	"github.com/example/realtime-chat/modules/store"
)

// Module hosts the presence tracker.
type Module struct {
	stores  *store.Module
	relays  *relay.Module
	tracker *Tracker
	bus     mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new presence module.
func NewModule(stores *store.Module, relays *relay.Module) *Module {
	return &Module{
		stores: stores,
		relays: relays,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.bus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.PresenceChangedV1.ToBase(),
	}
}

// Start wires the tracker.
func (m *Module) Start(_ context.Context) error {
	m.tracker = NewTracker(m.stores.Store(), m.relays.Hub())
	m.tracker.SetEventBus(m.bus)
	log.Println("[presence] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[presence] Module stopped")
	return nil
}

// Tracker returns the presence tracker. Valid after Start.
func (m *Module) Tracker() *Tracker {
	return m.tracker
}
