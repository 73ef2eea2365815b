package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/realtime-chat/domain/chat"
)

// MessageSentEvent is emitted by the relay after a message has been fanned
// out to its room. Consuming it persists the message, keeping live delivery
// latency independent of storage latency.
type MessageSentEvent struct {
	RoomID       string         `json:"roomId"`
	SenderConnID string         `json:"senderConnId"`
	Message      domain.Message `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
}

// PresenceChangedEvent is emitted when a user's online flag changes.
type PresenceChangedEvent struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted when a new room is created.
type RoomCreatedEvent struct {
	RoomID    string    `json:"roomId"`
	RoomName  string    `json:"roomName"`
	CreatedBy string    `json:"createdBy"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"relay",
		"MessageSent",
		"v1",
	)

	PresenceChangedV1 = helper.EventDefinition[PresenceChangedEvent](
		"presence",
		"PresenceChanged",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)
)
