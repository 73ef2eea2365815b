// Package chat implements the domain service of the backend: room and
// profile management, the membership index, and the persisted message log
// with its idempotent append and bulk reconciliation operations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/modules/store"
)

var (
	// ErrReservedRoomName is returned when a room uses a reserved name.
	ErrReservedRoomName = errors.New("room name is reserved")
	// ErrRoomNameEmpty is returned when a room name is missing.
	ErrRoomNameEmpty = errors.New("room name cannot be empty")
	// ErrInvalidRoomType is returned for room types other than group/private.
	ErrInvalidRoomType = errors.New("invalid room type")
)

// Service provides room, profile, and message-log operations over the
// session store.
type Service struct {
	store  store.Store
	bus    mono.EventBus
	logger *slog.Logger
}

// NewService creates a new chat service.
func NewService(st store.Store) *Service {
	return &Service{
		store:  st,
		logger: slog.Default(),
	}
}

// SetEventBus attaches the event bus used for room-created notifications.
// Without a bus those notifications are skipped.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.bus = bus
}

// RoomsForUser computes the membership index entry for a user: the subset of
// all rooms whose users set contains the id. It is recomputed on every call
// and never cached.
func (s *Service) RoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.HasUser(userID) {
			result = append(result, r)
		}
	}
	return result, nil
}

// CreateRoomParams are the inputs for CreateRoom.
type CreateRoomParams struct {
	RoomName string
	Type     string
	ImgURL   string
	UserID   string
	FriendID string
}

// CreateRoom creates a private or group room. The creator and the optional
// friend become members and have the room added to their room lists. The
// Global name is reserved; duplicate names otherwise are allowed.
func (s *Service) CreateRoom(ctx context.Context, p CreateRoomParams) (*domain.Room, error) {
	if p.RoomName == "" {
		return nil, ErrRoomNameEmpty
	}
	if p.RoomName == domain.GlobalRoomName {
		return nil, ErrReservedRoomName
	}
	if p.Type != domain.RoomTypeGroup && p.Type != domain.RoomTypePrivate {
		return nil, ErrInvalidRoomType
	}

	members := []string{}
	if p.UserID != "" {
		members = append(members, p.UserID)
		if p.FriendID != "" {
			members = append(members, p.FriendID)
		}
	}

	room := &domain.Room{
		RoomID:   uuid.New().String(),
		RoomName: p.RoomName,
		Type:     p.Type,
		ImgURL:   p.ImgURL,
		Users:    members,
		Messages: []domain.Message{},
	}
	if err := s.store.InsertRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	for _, userID := range members {
		if err := s.addRoomToUser(ctx, userID, room.RoomID); err != nil {
			return nil, err
		}
	}

	if s.bus != nil {
		event := events.RoomCreatedEvent{
			RoomID:    room.RoomID,
			RoomName:  room.RoomName,
			CreatedBy: p.UserID,
			Timestamp: time.Now(),
		}
		if err := events.RoomCreatedV1.Publish(s.bus, event, nil); err != nil {
			s.logger.Warn("Failed to publish RoomCreated event", "error", err)
		}
	}

	return room, nil
}

// GetRoom returns a room by id.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.store.FindRoom(ctx, store.RoomCriteria{RoomID: roomID})
}

// ListRooms returns every room.
func (s *Service) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.store.ListRooms(ctx)
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.store.ListUsers(ctx, store.UserCriteria{})
}

// OnlineUsers returns every user whose online flag is set.
func (s *Service) OnlineUsers(ctx context.Context) ([]domain.User, error) {
	online := true
	return s.store.ListUsers(ctx, store.UserCriteria{Online: &online})
}

// Profile returns a user by id.
func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.FindUser(ctx, store.UserCriteria{UserID: userID})
}

// UpdateProfileImg updates a user's profile image URL.
func (s *Service) UpdateProfileImg(ctx context.Context, userID, imgURL string) error {
	return s.store.UpdateUser(ctx, userID, store.UserPatch{ProfileImgURL: &imgURL})
}

// SetOnline updates a user's durable online flag.
func (s *Service) SetOnline(ctx context.Context, userID string, online bool) error {
	return s.store.UpdateUser(ctx, userID, store.UserPatch{Online: &online})
}

// DeleteRoomByName removes a room by name.
func (s *Service) DeleteRoomByName(ctx context.Context, roomName string) error {
	return s.store.DeleteRoom(ctx, store.RoomCriteria{RoomName: roomName})
}

// ResetUsers deletes every user record. Bulk-admin operation.
func (s *Service) ResetUsers(ctx context.Context) error {
	return s.store.DeleteAllUsers(ctx)
}

// ResetRooms deletes every room record. Bulk-admin operation.
func (s *Service) ResetRooms(ctx context.Context) error {
	return s.store.DeleteAllRooms(ctx)
}

// RoomMessages returns the persisted message log of a room.
func (s *Service) RoomMessages(ctx context.Context, roomID string) ([]domain.Message, error) {
	room, err := s.store.FindRoom(ctx, store.RoomCriteria{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	return room.Messages, nil
}

// AppendMessage appends a message to a room's log, skipping the write when a
// message with the same id is already persisted. Retransmissions from
// reconnecting clients therefore result in exactly one stored copy.
//
// The load-check-write sequence is not transactional: two concurrent appends
// to the same room can start from the same snapshot and one write can
// overwrite the other. This lost-update window is accepted; persistence is
// eventually consistent with what was broadcast.
func (s *Service) AppendMessage(ctx context.Context, roomID string, msg domain.Message) error {
	room, err := s.store.FindRoom(ctx, store.RoomCriteria{RoomID: roomID})
	if err != nil {
		return err
	}
	if room.HasMessage(msg.ID) {
		return nil
	}

	msgs := append(room.Messages, msg)
	if err := s.store.UpdateRoom(ctx, roomID, store.RoomPatch{Messages: &msgs}); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ReconcileMessages merges a client-supplied candidate list into a room's
// persisted log, anchoring on the last persisted message id:
//
//   - empty incoming list: no-op, the persisted log is returned unchanged
//   - the last persisted id occurs in the incoming list: the incoming
//     messages strictly after that position are appended
//   - no overlap (including an empty persisted log): the entire incoming
//     list is appended; this fallback can introduce duplicates and is kept
//     as documented behavior rather than silently repaired
//
// The merge is order-sensitive and correlates only on the tail anchor, not a
// full diff.
func (s *Service) ReconcileMessages(ctx context.Context, roomID string, incoming []domain.Message) ([]domain.Message, error) {
	room, err := s.store.FindRoom(ctx, store.RoomCriteria{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	if len(incoming) == 0 {
		return room.Messages, nil
	}

	merged := mergeOnTail(room.Messages, incoming)
	if err := s.store.UpdateRoom(ctx, roomID, store.RoomPatch{Messages: &merged}); err != nil {
		return nil, fmt.Errorf("failed to reconcile messages: %w", err)
	}
	return merged, nil
}

func mergeOnTail(persisted, incoming []domain.Message) []domain.Message {
	if len(persisted) == 0 {
		return append([]domain.Message{}, incoming...)
	}

	lastID := persisted[len(persisted)-1].ID
	anchor := -1
	for i, m := range incoming {
		if m.ID == lastID {
			anchor = i
			break
		}
	}

	merged := append([]domain.Message{}, persisted...)
	if anchor >= 0 {
		return append(merged, incoming[anchor+1:]...)
	}
	return append(merged, incoming...)
}

func (s *Service) addRoomToUser(ctx context.Context, userID, roomID string) error {
	user, err := s.store.FindUser(ctx, store.UserCriteria{UserID: userID})
	if err != nil {
		return fmt.Errorf("failed to find room member: %w", err)
	}
	rooms := append(user.Rooms, roomID)
	if err := s.store.UpdateUser(ctx, userID, store.UserPatch{Rooms: &rooms}); err != nil {
		return fmt.Errorf("failed to update room member: %w", err)
	}
	return nil
}
