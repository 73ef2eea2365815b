// Package store provides the session store: durable records of users and
// rooms, including each room's ordered message log. The Store interface is
// injected into the other modules; Memory is the in-memory reference
// implementation used by tests and Document is the SQLite-backed production
// implementation.
package store

import (
	"context"
	"errors"

	domain "github.com/example/realtime-chat/domain/chat"
)

// ErrNotFound is returned when no record matches the given criteria.
var ErrNotFound = errors.New("store: not found")

// UserCriteria selects users. Zero-value fields are ignored; set fields are
// ANDed together.
type UserCriteria struct {
	UserID   string
	UserName string
	Online   *bool
}

// RoomCriteria selects rooms. Zero-value fields are ignored.
type RoomCriteria struct {
	RoomID   string
	RoomName string
}

// UserPatch is a partial update of a user record. Nil fields are left
// untouched.
type UserPatch struct {
	Online        *bool
	ProfileImgURL *string
	Rooms         *[]string
}

// RoomPatch is a partial update of a room record. Nil fields are left
// untouched.
type RoomPatch struct {
	Users    *[]string
	Messages *[]domain.Message
}

// Store is the session store consumed by the core. Individual operations are
// atomic, but sequences of operations are not: a load-modify-write through
// this interface can interleave with a concurrent writer.
type Store interface {
	FindUser(ctx context.Context, c UserCriteria) (*domain.User, error)
	FindRoom(ctx context.Context, c RoomCriteria) (*domain.Room, error)
	ListUsers(ctx context.Context, c UserCriteria) ([]domain.User, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	InsertUser(ctx context.Context, u *domain.User) error
	InsertRoom(ctx context.Context, r *domain.Room) error
	UpdateUser(ctx context.Context, userID string, p UserPatch) error
	UpdateRoom(ctx context.Context, roomID string, p RoomPatch) error
	DeleteRoom(ctx context.Context, c RoomCriteria) error
	DeleteAllUsers(ctx context.Context) error
	DeleteAllRooms(ctx context.Context) error
}

func matchUser(u *domain.User, c UserCriteria) bool {
	if c.UserID != "" && u.UserID != c.UserID {
		return false
	}
	if c.UserName != "" && u.UserName != c.UserName {
		return false
	}
	if c.Online != nil && u.Online != *c.Online {
		return false
	}
	return true
}

func matchRoom(r *domain.Room, c RoomCriteria) bool {
	if c.RoomID != "" && r.RoomID != c.RoomID {
		return false
	}
	if c.RoomName != "" && r.RoomName != c.RoomName {
		return false
	}
	return true
}
