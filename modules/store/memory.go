package store

import (
	"context"
	"sync"

	domain "github.com/example/realtime-chat/domain/chat"
)

// Memory is an in-memory Store backed by mutex-protected maps. It is the
// reference implementation used by unit tests; each call is individually
// serialized but sequences of calls are not, matching the consistency model
// of the document-backed store.
type Memory struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	rooms map[string]*domain.Room
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]*domain.User),
		rooms: make(map[string]*domain.Room),
	}
}

// FindUser returns the first user matching the criteria.
func (m *Memory) FindUser(_ context.Context, c UserCriteria) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if matchUser(u, c) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// FindRoom returns the first room matching the criteria.
func (m *Memory) FindRoom(_ context.Context, c RoomCriteria) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rooms {
		if matchRoom(r, c) {
			return copyRoom(r), nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns all users matching the criteria.
func (m *Memory) ListUsers(_ context.Context, c UserCriteria) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if matchUser(u, c) {
			result = append(result, *copyUser(u))
		}
	}
	return result, nil
}

// ListRooms returns all rooms.
func (m *Memory) ListRooms(_ context.Context) ([]domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		result = append(result, *copyRoom(r))
	}
	return result, nil
}

// InsertUser stores a new user.
func (m *Memory) InsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[u.UserID] = copyUser(u)
	return nil
}

// InsertRoom stores a new room.
func (m *Memory) InsertRoom(_ context.Context, r *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rooms[r.RoomID] = copyRoom(r)
	return nil
}

// UpdateUser applies a partial update to a user.
func (m *Memory) UpdateUser(_ context.Context, userID string, p UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	if p.Online != nil {
		u.Online = *p.Online
	}
	if p.ProfileImgURL != nil {
		u.ProfileImgURL = *p.ProfileImgURL
	}
	if p.Rooms != nil {
		u.Rooms = append([]string(nil), (*p.Rooms)...)
	}
	return nil
}

// UpdateRoom applies a partial update to a room.
func (m *Memory) UpdateRoom(_ context.Context, roomID string, p RoomPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	if p.Users != nil {
		r.Users = append([]string(nil), (*p.Users)...)
	}
	if p.Messages != nil {
		r.Messages = append([]domain.Message(nil), (*p.Messages)...)
	}
	return nil
}

// DeleteRoom removes the first room matching the criteria.
func (m *Memory) DeleteRoom(_ context.Context, c RoomCriteria) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rooms {
		if matchRoom(r, c) {
			delete(m.rooms, id)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteAllUsers removes every user record.
func (m *Memory) DeleteAllUsers(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*domain.User)
	return nil
}

// DeleteAllRooms removes every room record.
func (m *Memory) DeleteAllRooms(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rooms = make(map[string]*domain.Room)
	return nil
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	cp.Rooms = append([]string(nil), u.Rooms...)
	return &cp
}

func copyRoom(r *domain.Room) *domain.Room {
	cp := *r
	cp.Users = append([]string(nil), r.Users...)
	cp.Messages = append([]domain.Message(nil), r.Messages...)
	return &cp
}
