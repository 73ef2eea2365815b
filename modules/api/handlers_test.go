package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/presence"
	"github.com/example/realtime-chat/modules/relay"
	"github.com/example/realtime-chat/modules/store"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	authSvc := auth.NewService(mem, auth.NewPasswordHasher(), auth.NewJWTManager(auth.JWTConfig{
		SecretKey: "test-secret",
		TokenTTL:  time.Hour,
		Issuer:    "test",
	}))
	chatSvc := chat.NewService(mem)
	hub := relay.NewHub()
	relaySvc := relay.NewService(hub)
	tracker := presence.NewTracker(mem, hub)

	h := NewHandlers(authSvc, chatSvc, relaySvc, hub, tracker, nil)
	authMW := AuthMiddleware(authSvc)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/auth/register", h.Register)
	api.Post("/auth/login", h.Login)
	api.Get("/users", h.ListUsers)
	api.Get("/users/online", h.OnlineUsers)
	api.Get("/profile", authMW, h.Profile)
	api.Put("/profile", authMW, h.UpdateProfile)
	api.Get("/rooms", authMW, h.MyRooms)
	api.Get("/rooms/all", h.AllRooms)
	api.Post("/rooms", h.CreateRoom)
	api.Get("/rooms/:roomId/messages", h.RoomMessages)
	api.Put("/rooms/:roomId/messages", h.SyncMessages)
	api.Delete("/rooms/:roomName", h.DeleteRoom)

	return app, mem
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	return resp, data
}

func registerUser(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	resp, body := doJSON(t, app, "POST", "/api/v1/auth/register", "", CredentialsRequest{
		Username: username,
		Password: "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register %s: status = %d, body = %s", username, resp.StatusCode, body)
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		t.Fatalf("failed to decode token response: %v", err)
	}
	if tok.JWTToken == "" {
		t.Fatal("register returned empty jwtToken")
	}
	return tok.JWTToken
}

func TestHandlers_RegisterLoginProfile(t *testing.T) {
	app, _ := newTestApp(t)

	token := registerUser(t, app, "alice")

	// Duplicate registration is rejected.
	resp, _ := doJSON(t, app, "POST", "/api/v1/auth/register", "", CredentialsRequest{
		Username: "alice",
		Password: "other456",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	// Login with the right password works.
	resp, body := doJSON(t, app, "POST", "/api/v1/auth/login", "", CredentialsRequest{
		Username: "alice",
		Password: "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", resp.StatusCode, body)
	}

	// Profile requires a token and reflects the registered user.
	resp, _ = doJSON(t, app, "GET", "/api/v1/profile", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("profile without token status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	resp, body = doJSON(t, app, "GET", "/api/v1/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d, body = %s", resp.StatusCode, body)
	}
	var profile domain.User
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile.UserName != "alice" {
		t.Errorf("profile userName = %q, want %q", profile.UserName, "alice")
	}
	if len(profile.Rooms) != 1 {
		t.Errorf("profile rooms = %v, want the Global room", profile.Rooms)
	}
}

func TestHandlers_MyRoomsIncludesGlobal(t *testing.T) {
	app, _ := newTestApp(t)

	token := registerUser(t, app, "alice")

	resp, body := doJSON(t, app, "GET", "/api/v1/rooms", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rooms status = %d, body = %s", resp.StatusCode, body)
	}

	var rooms []domain.Room
	if err := json.Unmarshal(body, &rooms); err != nil {
		t.Fatalf("failed to decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].RoomName != domain.GlobalRoomName {
		t.Errorf("rooms = %v, want only the Global room", rooms)
	}
}

func TestHandlers_CreateRoom(t *testing.T) {
	app, mem := newTestApp(t)

	token := registerUser(t, app, "alice")

	var profile domain.User
	resp, body := doJSON(t, app, "GET", "/api/v1/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}

	resp, body = doJSON(t, app, "POST", "/api/v1/rooms", "", CreateRoomRequest{
		RoomName: "weekend",
		Type:     domain.RoomTypeGroup,
		UserID:   profile.UserID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d, body = %s", resp.StatusCode, body)
	}

	var room domain.Room
	if err := json.Unmarshal(body, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	if !room.HasUser(profile.UserID) {
		t.Error("created room does not contain the creator")
	}

	// Reserved name is rejected.
	resp, _ = doJSON(t, app, "POST", "/api/v1/rooms", "", CreateRoomRequest{
		RoomName: domain.GlobalRoomName,
		Type:     domain.RoomTypeGroup,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reserved room name status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	if _, err := mem.FindRoom(context.Background(), store.RoomCriteria{RoomID: room.RoomID}); err != nil {
		t.Errorf("created room not persisted: %v", err)
	}
}

func TestHandlers_SyncMessages(t *testing.T) {
	app, mem := newTestApp(t)

	if err := mem.InsertRoom(context.Background(), &domain.Room{
		RoomID:   "r1",
		RoomName: "general",
		Messages: []domain.Message{{ID: "m1"}, {ID: "m2"}},
	}); err != nil {
		t.Fatalf("InsertRoom() unexpected error: %v", err)
	}

	resp, body := doJSON(t, app, "PUT", "/api/v1/rooms/r1/messages", "", SyncMessagesRequest{
		MessageList: []domain.Message{{ID: "m2"}, {ID: "m3"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status = %d, body = %s", resp.StatusCode, body)
	}

	var sync SyncMessagesResponse
	if err := json.Unmarshal(body, &sync); err != nil {
		t.Fatalf("failed to decode sync response: %v", err)
	}
	if len(sync.List) != 3 || sync.List[2].ID != "m3" {
		t.Errorf("sync list = %v, want [m1 m2 m3]", sync.List)
	}

	// Empty list is a no-op.
	resp, body = doJSON(t, app, "PUT", "/api/v1/rooms/r1/messages", "", SyncMessagesRequest{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("empty sync status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &sync); err != nil {
		t.Fatalf("failed to decode sync response: %v", err)
	}
	if sync.Msg != "nothing to update" {
		t.Errorf("empty sync msg = %q, want %q", sync.Msg, "nothing to update")
	}

	// Unknown room is a 404.
	resp, _ = doJSON(t, app, "PUT", "/api/v1/rooms/missing/messages", "", SyncMessagesRequest{
		MessageList: []domain.Message{{ID: "m1"}},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("sync unknown room status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHandlers_DeleteRoom(t *testing.T) {
	app, mem := newTestApp(t)

	if err := mem.InsertRoom(context.Background(), &domain.Room{RoomID: "r1", RoomName: "general"}); err != nil {
		t.Fatalf("InsertRoom() unexpected error: %v", err)
	}

	resp, _ := doJSON(t, app, "DELETE", "/api/v1/rooms/general", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete room status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "DELETE", "/api/v1/rooms/general", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing room status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
