package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/cache"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/presence"
	"github.com/example/realtime-chat/modules/relay"
	"github.com/example/realtime-chat/modules/store"
)

// Handlers contains the REST and WebSocket handlers.
type Handlers struct {
	auth     *auth.Service
	chat     *chat.Service
	relay    *relay.Service
	hub      *relay.Hub
	presence *presence.Tracker
	cache    *cache.Cache // nil when the cache module is disabled
	logger   *slog.Logger
}

// NewHandlers creates a handlers instance.
func NewHandlers(authSvc *auth.Service, chatSvc *chat.Service, relaySvc *relay.Service, hub *relay.Hub, tracker *presence.Tracker, onlineCache *cache.Cache) *Handlers {
	return &Handlers{
		auth:     authSvc,
		chat:     chatSvc,
		relay:    relaySvc,
		hub:      hub,
		presence: tracker,
		cache:    onlineCache,
		logger:   slog.Default(),
	}
}

// Register handles user registration (POST /api/v1/auth/register).
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, err := h.auth.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists),
			errors.Is(err, auth.ErrUsernameEmpty),
			errors.Is(err, auth.ErrPasswordEmpty):
			return badRequest(c, err.Error())
		default:
			return h.internalError(c, "register", err)
		}
	}
	return c.JSON(TokenResponse{JWTToken: token})
}

// Login handles user login (POST /api/v1/auth/login).
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return badRequest(c, err.Error())
		}
		return h.internalError(c, "login", err)
	}
	return c.JSON(TokenResponse{JWTToken: token})
}

// ListUsers handles GET /api/v1/users.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.chat.ListUsers(c.UserContext())
	if err != nil {
		return h.internalError(c, "list users", err)
	}
	return c.JSON(users)
}

// OnlineUsers handles GET /api/v1/users/online, reading through the cache
// when it is enabled.
func (h *Handlers) OnlineUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if h.cache != nil {
		users, err := h.cache.OnlineUsers(ctx, h.chat.OnlineUsers)
		if err == nil {
			return c.JSON(users)
		}
		h.logger.Warn("Online users cache unavailable, falling back to store", "error", err)
	}

	users, err := h.chat.OnlineUsers(ctx)
	if err != nil {
		return h.internalError(c, "list online users", err)
	}
	return c.JSON(users)
}

// SetOnline handles PUT /api/v1/users/:userId/online.
func (h *Handlers) SetOnline(c *fiber.Ctx) error {
	var req UpdateOnlineRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID := c.Params("userId")
	if err := h.chat.SetOnline(c.UserContext(), userID, req.Online); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return h.internalError(c, "set online", err)
	}
	return c.JSON(fiber.Map{"msg": "updated successfully"})
}

// Profile handles GET /api/v1/profile for the authenticated user.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	userID, _ := c.Locals(UserContextKey).(string)
	user, err := h.chat.Profile(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return h.internalError(c, "profile", err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /api/v1/profile for the authenticated user.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID, _ := c.Locals(UserContextKey).(string)
	if err := h.chat.UpdateProfileImg(c.UserContext(), userID, req.ProfileImgURL); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return h.internalError(c, "update profile", err)
	}
	return c.JSON(fiber.Map{"msg": "updated successfully"})
}

// MyRooms handles GET /api/v1/rooms: the rooms the authenticated user is a
// member of.
func (h *Handlers) MyRooms(c *fiber.Ctx) error {
	userID, _ := c.Locals(UserContextKey).(string)
	rooms, err := h.chat.RoomsForUser(c.UserContext(), userID)
	if err != nil {
		return h.internalError(c, "list user rooms", err)
	}
	return c.JSON(rooms)
}

// AllRooms handles GET /api/v1/rooms/all.
func (h *Handlers) AllRooms(c *fiber.Ctx) error {
	rooms, err := h.chat.ListRooms(c.UserContext())
	if err != nil {
		return h.internalError(c, "list rooms", err)
	}
	return c.JSON(rooms)
}

// CreateRoom handles POST /api/v1/rooms.
func (h *Handlers) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	room, err := h.chat.CreateRoom(c.UserContext(), chat.CreateRoomParams{
		RoomName: req.RoomName,
		Type:     req.Type,
		ImgURL:   req.ImgURL,
		UserID:   req.UserID,
		FriendID: req.FriendID,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrReservedRoomName),
			errors.Is(err, chat.ErrRoomNameEmpty),
			errors.Is(err, chat.ErrInvalidRoomType):
			return badRequest(c, err.Error())
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "Room member not found")
		default:
			return h.internalError(c, "create room", err)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// RoomMessages handles GET /api/v1/rooms/:roomId/messages.
func (h *Handlers) RoomMessages(c *fiber.Ctx) error {
	messages, err := h.chat.RoomMessages(c.UserContext(), c.Params("roomId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Room not found")
		}
		return h.internalError(c, "room messages", err)
	}
	return c.JSON(messages)
}

// SyncMessages handles PUT /api/v1/rooms/:roomId/messages: the bulk
// reconciliation of a client-supplied message list into the persisted log.
func (h *Handlers) SyncMessages(c *fiber.Ctx) error {
	var req SyncMessagesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if len(req.MessageList) == 0 {
		return c.JSON(SyncMessagesResponse{Msg: "nothing to update"})
	}

	merged, err := h.chat.ReconcileMessages(c.UserContext(), c.Params("roomId"), req.MessageList)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Room not found")
		}
		return h.internalError(c, "sync messages", err)
	}
	return c.JSON(SyncMessagesResponse{Msg: "updated successfully", List: merged})
}

// DeleteRoom handles DELETE /api/v1/rooms/:roomName.
func (h *Handlers) DeleteRoom(c *fiber.Ctx) error {
	roomName := c.Params("roomName")
	if err := h.chat.DeleteRoomByName(c.UserContext(), roomName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Room not found")
		}
		return h.internalError(c, "delete room", err)
	}
	return c.JSON(fiber.Map{"msg": fmt.Sprintf("deleted room: %s", roomName)})
}

// ResetUsers handles DELETE /api/v1/users: the bulk-admin user reset.
func (h *Handlers) ResetUsers(c *fiber.Ctx) error {
	if err := h.chat.ResetUsers(c.UserContext()); err != nil {
		return h.internalError(c, "reset users", err)
	}
	return c.JSON(fiber.Map{"msg": "successfully deleted"})
}

// ResetRooms handles DELETE /api/v1/rooms: the bulk-admin room reset.
func (h *Handlers) ResetRooms(c *fiber.Ctx) error {
	if err := h.chat.ResetRooms(c.UserContext()); err != nil {
		return h.internalError(c, "reset rooms", err)
	}
	return c.JSON(fiber.Map{"msg": "successfully deleted"})
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "realtime-chat",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: msg,
	})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: msg,
	})
}

func (h *Handlers) internalError(c *fiber.Ctx, op string, err error) error {
	h.logger.Error("Request failed", "op", op, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "Internal Server Error",
	})
}
