package api

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/relay"
)

// RoomRef identifies a room in a connectRooms payload.
type RoomRef struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload is the client payload of the send-message event.
type SendMessagePayload struct {
	Message domain.Message `json:"message"`
	RoomID  string         `json:"roomId"`
}

// HandleWebSocket runs the live channel for one connection. The connection
// was authenticated during the upgrade; its user id is carried in the
// conn locals.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	userID, _ := c.Locals(UserContextKey).(string)
	connID := uuid.New().String()

	h.hub.Register(connID, userID, c)
	defer func() {
		// The transport's disconnect signal only removes the live
		// registration. Presence stays untouched: a client that vanishes
		// without a userDisconnect event remains marked online.
		h.hub.Unregister(connID)
		c.Close()
	}()

	h.logger.Info("WebSocket connected", "connId", connID, "userId", userID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "connId", connID, "error", err)
			}
			break
		}

		var env relay.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(connID, "Invalid message format")
			continue
		}

		h.handleEvent(connID, env)
	}

	h.logger.Info("WebSocket disconnected", "connId", connID, "userId", userID)
}

// handleEvent dispatches one inbound live-channel event.
func (h *Handlers) handleEvent(connID string, env relay.Envelope) {
	ctx := context.Background()

	switch env.Event {
	case "connectRooms":
		h.handleConnectRooms(connID, env.Payload)
	case "send-message":
		h.handleSendMessage(ctx, connID, env.Payload)
	case "userConnect":
		h.handlePresence(ctx, connID, env.Payload, true)
	case "userDisconnect":
		h.handlePresence(ctx, connID, env.Payload, false)
	default:
		h.sendError(connID, "Unknown event: "+env.Event)
	}
}

// handleConnectRooms subscribes the connection to the rooms it claims
// membership in. The claim is trusted: the room list was filtered by the
// REST layer when the client fetched it.
func (h *Handlers) handleConnectRooms(connID string, payload json.RawMessage) {
	var refs []RoomRef
	if err := json.Unmarshal(payload, &refs); err != nil {
		h.sendError(connID, "Invalid connectRooms payload")
		return
	}

	roomIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		roomIDs = append(roomIDs, ref.RoomID)
	}
	h.relay.Subscribe(connID, roomIDs)
}

// handleSendMessage publishes a chat message: immediate fan-out to the other
// subscribers of the room, then asynchronous persistence.
func (h *Handlers) handleSendMessage(ctx context.Context, connID string, payload json.RawMessage) {
	var req SendMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(connID, "Invalid send-message payload")
		return
	}
	if req.RoomID == "" || req.Message.ID == "" {
		h.sendError(connID, "roomId and message.id are required")
		return
	}

	if err := h.relay.Publish(ctx, connID, req.RoomID, req.Message); err != nil {
		h.logger.Error("Publish failed", "connId", connID, "roomId", req.RoomID, "error", err)
		h.sendError(connID, "Failed to publish message")
	}
}

// handlePresence marks the user online or offline and notifies everyone
// else.
func (h *Handlers) handlePresence(ctx context.Context, connID string, payload json.RawMessage, online bool) {
	var profile domain.User
	if err := json.Unmarshal(payload, &profile); err != nil {
		h.sendError(connID, "Invalid presence payload")
		return
	}
	if profile.UserID == "" {
		h.sendError(connID, "userId is required")
		return
	}

	var err error
	if online {
		err = h.presence.Connect(ctx, connID, profile)
	} else {
		err = h.presence.Disconnect(ctx, connID, profile)
	}
	if err != nil {
		h.logger.Error("Presence update failed", "connId", connID, "userId", profile.UserID, "error", err)
		h.sendError(connID, "Failed to update presence")
	}
}

func (h *Handlers) sendError(connID, msg string) {
	h.hub.SendError(connID, msg)
}
