package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/modules/store"
)

// Module hosts the chat domain service and the persist phase of message
// publishing: it consumes MessageSent events from the bus and writes them to
// the session store, decoupled from the live fan-out.
type Module struct {
	stores  *store.Module
	service *Service
	bus     mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new chat module over the store module.
func NewModule(stores *store.Module) *Module {
	return &Module{stores: stores}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.bus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes the persist phase to MessageSent events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	log.Println("[chat] Registered event consumers: MessageSent")
	return nil
}

// handleMessageSent persists a fanned-out message into the room log.
// Persistence failures abort this one operation; they are logged rather than
// returned so the bus does not retry on the core's behalf.
func (m *Module) handleMessageSent(ctx context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	if err := m.service.AppendMessage(ctx, event.RoomID, event.Message); err != nil {
		log.Printf("[chat] Failed to persist message %s in room %s: %v", event.Message.ID, event.RoomID, err)
	}
	return nil
}

// Start wires the chat service.
func (m *Module) Start(_ context.Context) error {
	m.service = NewService(m.stores.Store())
	m.service.SetEventBus(m.bus)
	log.Println("[chat] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// Service returns the chat service. Valid after Start.
func (m *Module) Service() *Service {
	return m.service
}
