// Package presence tracks users' online/offline status. The session store
// is authoritative for the flag; the global broadcast to other connections
// is best-effort notification only.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/modules/relay"
	"github.com/example/realtime-chat/modules/store"
)

// Tracker maintains online status, synchronized between the store and the
// live broadcast.
type Tracker struct {
	store  store.Store
	hub    *relay.Hub
	bus    mono.EventBus
	logger *slog.Logger
}

// NewTracker creates a presence tracker.
func NewTracker(st store.Store, hub *relay.Hub) *Tracker {
	return &Tracker{
		store:  st,
		hub:    hub,
		logger: slog.Default(),
	}
}

// SetEventBus attaches the bus used for presence-changed notifications.
func (t *Tracker) SetEventBus(bus mono.EventBus) {
	t.bus = bus
}

// Connect marks the user online and notifies every other live connection.
// The broadcast happens first and cannot fail; a store failure is reported
// to the caller but does not undo the notification.
func (t *Tracker) Connect(ctx context.Context, originConnID string, profile domain.User) error {
	return t.setPresence(ctx, originConnID, profile, true)
}

// Disconnect marks the user offline and notifies every other live
// connection. A client that vanishes without signaling stays marked online
// until it reconnects and signals again.
func (t *Tracker) Disconnect(ctx context.Context, originConnID string, profile domain.User) error {
	return t.setPresence(ctx, originConnID, profile, false)
}

func (t *Tracker) setPresence(ctx context.Context, originConnID string, profile domain.User, online bool) error {
	event := "userDisconnect"
	if online {
		event = "userConnect"
	}
	profile.Online = online
	t.hub.BroadcastAll(originConnID, event, profile)

	if err := t.store.UpdateUser(ctx, profile.UserID, store.UserPatch{Online: &online}); err != nil {
		t.logger.Error("Failed to update online flag", "userId", profile.UserID, "online", online, "error", err)
		return fmt.Errorf("failed to update online flag: %w", err)
	}

	if t.bus != nil {
		change := events.PresenceChangedEvent{
			UserID:    profile.UserID,
			UserName:  profile.UserName,
			Online:    online,
			Timestamp: time.Now(),
		}
		if err := events.PresenceChangedV1.Publish(t.bus, change, nil); err != nil {
			t.logger.Warn("Failed to publish PresenceChanged event", "error", err)
		}
	}

	t.logger.Info("Presence changed", "userId", profile.UserID, "online", online)
	return nil
}
