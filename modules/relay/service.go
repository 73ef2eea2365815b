package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/events"
)

// ReceiveMessagePayload is the payload of the receive-message event sent to
// the other subscribers of a room.
type ReceiveMessagePayload struct {
	Message domain.Message `json:"message"`
	RoomID  string         `json:"roomId"`
}

// Service composes the two phases of publishing a message: the immediate
// fan-out to live subscribers and the asynchronous, fallible persistence
// handed off through the event bus.
type Service struct {
	hub    *Hub
	bus    mono.EventBus
	logger *slog.Logger
}

// NewService creates a relay service over the hub.
func NewService(hub *Hub) *Service {
	return &Service{
		hub:    hub,
		logger: slog.Default(),
	}
}

// SetEventBus attaches the bus carrying MessageSent events to the persist
// phase. Without a bus, publishing only fans out.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.bus = bus
}

// Subscribe adds the connection to the live subscriber sets of the given
// rooms.
func (s *Service) Subscribe(connID string, roomIDs []string) {
	s.hub.Subscribe(connID, roomIDs)
}

// Publish relays a new chat message. The message is fanned out to every
// other live subscriber of the room before any persistence work happens, so
// live delivery latency is independent of storage latency. Persistence is
// then requested through the bus; a failure there aborts only the persist
// phase and is reported to the caller.
func (s *Service) Publish(_ context.Context, senderConnID, roomID string, msg domain.Message) error {
	sent := s.hub.BroadcastRoom(roomID, senderConnID, "receive-message", ReceiveMessagePayload{
		Message: msg,
		RoomID:  roomID,
	})
	s.logger.Debug("Message fanned out", "roomId", roomID, "recipients", sent)

	if s.bus == nil {
		return nil
	}

	event := events.MessageSentEvent{
		RoomID:       roomID,
		SenderConnID: senderConnID,
		Message:      msg,
		Timestamp:    time.Now(),
	}
	if err := events.MessageSentV1.Publish(s.bus, event, nil); err != nil {
		return fmt.Errorf("failed to request message persistence: %w", err)
	}
	return nil
}
