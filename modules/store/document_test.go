package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/realtime-chat/domain/chat"
)

func newTestDocument(t *testing.T) *Document {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	doc := NewDocument(db)
	if err := doc.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return doc
}

func TestDocument_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	user := &domain.User{
		UserID:        "u1",
		UserName:      "alice",
		PasswordHash:  "hash",
		Online:        true,
		ProfileImgURL: "alice.png",
		Rooms:         []string{"r1", "r2"},
	}
	if err := doc.InsertUser(ctx, user); err != nil {
		t.Fatalf("InsertUser() unexpected error: %v", err)
	}

	got, err := doc.FindUser(ctx, UserCriteria{UserName: "alice"})
	if err != nil {
		t.Fatalf("FindUser() unexpected error: %v", err)
	}
	if got.UserID != "u1" || got.PasswordHash != "hash" || !got.Online {
		t.Errorf("FindUser() = %+v, fields do not match inserted user", got)
	}
	if len(got.Rooms) != 2 || got.Rooms[0] != "r1" || got.Rooms[1] != "r2" {
		t.Errorf("FindUser() Rooms = %v, want [r1 r2]", got.Rooms)
	}
}

func TestDocument_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	if err := doc.InsertUser(ctx, &domain.User{UserID: "u1", UserName: "alice", PasswordHash: "h"}); err != nil {
		t.Fatalf("InsertUser() unexpected error: %v", err)
	}
	if err := doc.InsertUser(ctx, &domain.User{UserID: "u2", UserName: "alice", PasswordHash: "h"}); err == nil {
		t.Error("InsertUser() with duplicate username expected error, got nil")
	}
}

func TestDocument_RoomMessageLog(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	room := &domain.Room{
		RoomID:   "r1",
		RoomName: "general",
		Type:     domain.RoomTypeGroup,
		Users:    []string{"u1", "u2"},
		Messages: []domain.Message{{ID: "m1", Sender: "u1", Body: "hello"}},
	}
	if err := doc.InsertRoom(ctx, room); err != nil {
		t.Fatalf("InsertRoom() unexpected error: %v", err)
	}

	msgs := append(room.Messages, domain.Message{ID: "m2", Sender: "u2", Body: "hi"})
	if err := doc.UpdateRoom(ctx, "r1", RoomPatch{Messages: &msgs}); err != nil {
		t.Fatalf("UpdateRoom() unexpected error: %v", err)
	}

	got, err := doc.FindRoom(ctx, RoomCriteria{RoomID: "r1"})
	if err != nil {
		t.Fatalf("FindRoom() unexpected error: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("FindRoom() returned %d messages, want 2", len(got.Messages))
	}
	if got.Messages[1].ID != "m2" {
		t.Errorf("FindRoom() Messages[1].ID = %q, want %q", got.Messages[1].ID, "m2")
	}
	if len(got.Users) != 2 {
		t.Errorf("UpdateRoom() touched Users = %v, want 2 members", got.Users)
	}
}

func TestDocument_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	online := true
	if err := doc.UpdateUser(ctx, "missing", UserPatch{Online: &online}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUser(missing) error = %v, want ErrNotFound", err)
	}

	msgs := []domain.Message{{ID: "m1"}}
	if err := doc.UpdateRoom(ctx, "missing", RoomPatch{Messages: &msgs}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRoom(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDocument_EmptyPatchIsNoOp(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	// An empty patch never touches the database, so even an unknown id
	// succeeds.
	if err := doc.UpdateUser(ctx, "missing", UserPatch{}); err != nil {
		t.Errorf("UpdateUser(empty patch) unexpected error: %v", err)
	}
}

func TestDocument_DeleteRoomByName(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	if err := doc.InsertRoom(ctx, &domain.Room{RoomID: "r1", RoomName: "general"}); err != nil {
		t.Fatalf("InsertRoom() unexpected error: %v", err)
	}

	if err := doc.DeleteRoom(ctx, RoomCriteria{RoomName: "general"}); err != nil {
		t.Fatalf("DeleteRoom() unexpected error: %v", err)
	}
	if _, err := doc.FindRoom(ctx, RoomCriteria{RoomID: "r1"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindRoom() after delete error = %v, want ErrNotFound", err)
	}
	if err := doc.DeleteRoom(ctx, RoomCriteria{RoomName: "general"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteRoom(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestDocument_DeleteAll(t *testing.T) {
	ctx := context.Background()
	doc := newTestDocument(t)

	for i, name := range []string{"alice", "bob"} {
		if err := doc.InsertUser(ctx, &domain.User{UserID: string(rune('a' + i)), UserName: name, PasswordHash: "h"}); err != nil {
			t.Fatalf("InsertUser() unexpected error: %v", err)
		}
	}
	if err := doc.InsertRoom(ctx, &domain.Room{RoomID: "r1", RoomName: "general"}); err != nil {
		t.Fatalf("InsertRoom() unexpected error: %v", err)
	}

	if err := doc.DeleteAllUsers(ctx); err != nil {
		t.Fatalf("DeleteAllUsers() unexpected error: %v", err)
	}
	if err := doc.DeleteAllRooms(ctx); err != nil {
		t.Fatalf("DeleteAllRooms() unexpected error: %v", err)
	}

	users, err := doc.ListUsers(ctx, UserCriteria{})
	if err != nil {
		t.Fatalf("ListUsers() unexpected error: %v", err)
	}
	rooms, err := doc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms() unexpected error: %v", err)
	}
	if len(users) != 0 || len(rooms) != 0 {
		t.Errorf("after reset: %d users, %d rooms, want 0 and 0", len(users), len(rooms))
	}
}
