// Package chat defines the core entities of the chat backend.
package chat

import (
	"time"
)

// Room types.
const (
	RoomTypeGroup   = "group"
	RoomTypePrivate = "private"
)

// GlobalRoomName is the reserved name of the room every user belongs to.
// Exactly one room with this name exists; it is created on first registration.
const GlobalRoomName = "Global"

// User represents a registered user. Presence is a durable boolean flag;
// the live broadcast of presence changes is best-effort notification only.
type User struct {
	UserID        string   `json:"userId"`
	UserName      string   `json:"userName"`
	PasswordHash  string   `json:"-"`
	Online        bool     `json:"online"`
	ProfileImgURL string   `json:"profileImgUrl,omitempty"`
	Rooms         []string `json:"rooms"`
}

// Room represents a named channel grouping users and an append-only
// message log. Room names are not unique in general; only GlobalRoomName
// is special-cased.
type Room struct {
	RoomID   string    `json:"roomId"`
	RoomName string    `json:"roomName"`
	Type     string    `json:"type"`
	ImgURL   string    `json:"imgUrl,omitempty"`
	Users    []string  `json:"users"`
	Messages []Message `json:"messages"`
}

// Message is a single chat message. The ID is client-generated and unique
// within a room's log; persisted messages are never mutated or removed.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// HasMessage reports whether the room's log already contains a message
// with the given id.
func (r *Room) HasMessage(id string) bool {
	for _, m := range r.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// HasUser reports whether the room's users set contains the given user id.
func (r *Room) HasUser(userID string) bool {
	for _, u := range r.Users {
		if u == userID {
			return true
		}
	}
	return false
}
