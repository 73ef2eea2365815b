package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	svc := NewService(mem, NewPasswordHasher(), newTestJWTManager(time.Hour))
	return svc, mem
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	token, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Register() returned empty token")
	}

	user, err := mem.FindUser(ctx, store.UserCriteria{UserName: "alice"})
	if err != nil {
		t.Fatalf("FindUser() unexpected error: %v", err)
	}
	if user.Online {
		t.Error("Register() created user already online")
	}
	if user.PasswordHash == "secret123" {
		t.Error("Register() stored the plaintext password")
	}

	global, err := mem.FindRoom(ctx, store.RoomCriteria{RoomName: domain.GlobalRoomName})
	if err != nil {
		t.Fatalf("FindRoom(Global) unexpected error: %v", err)
	}
	if !global.HasUser(user.UserID) {
		t.Error("Register() did not add the user to the Global room")
	}
	if len(user.Rooms) != 1 || user.Rooms[0] != global.RoomID {
		t.Errorf("Register() user.Rooms = %v, want [%s]", user.Rooms, global.RoomID)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "empty username",
			username: "",
			password: "secret123",
			wantErr:  ErrUsernameEmpty,
		},
		{
			name:     "empty password",
			username: "alice",
			password: "",
			wantErr:  ErrPasswordEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.username, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_RegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "other456"); !errors.Is(err, ErrUserExists) {
		t.Errorf("Register(duplicate) error = %v, want ErrUserExists", err)
	}
}

func TestService_GlobalRoomCreatedOnce(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	if _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("Register(alice) unexpected error: %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "secret456"); err != nil {
		t.Fatalf("Register(bob) unexpected error: %v", err)
	}

	rooms, err := mem.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms() unexpected error: %v", err)
	}

	globals := 0
	for _, r := range rooms {
		if r.RoomName == domain.GlobalRoomName {
			globals++
			if len(r.Users) != 2 {
				t.Errorf("Global room has %d members, want 2", len(r.Users))
			}
		}
	}
	if globals != 1 {
		t.Errorf("found %d Global rooms, want exactly 1", globals)
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			username: "alice",
			password: "secret123",
		},
		{
			name:     "wrong password",
			username: "alice",
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "mallory",
			password: "secret123",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() unexpected error: %v", err)
			}
			if token == "" {
				t.Error("Login() returned empty token")
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	token, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	user, err := mem.FindUser(ctx, store.UserCriteria{UserName: "alice"})
	if err != nil {
		t.Fatalf("FindUser() unexpected error: %v", err)
	}

	userID, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate() unexpected error: %v", err)
	}
	if userID != user.UserID {
		t.Errorf("Authenticate() userID = %q, want %q", userID, user.UserID)
	}

	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Authenticate(garbage) error = %v, want ErrInvalidToken", err)
	}

	// A token for a user that no longer exists is rejected.
	if err := mem.DeleteAllUsers(ctx); err != nil {
		t.Fatalf("DeleteAllUsers() unexpected error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Authenticate(deleted user) error = %v, want ErrInvalidToken", err)
	}
}
