// Package api exposes the REST API and the WebSocket live channel over a
// single Fiber server.
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/realtime-chat/config"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/cache"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/presence"
	"github.com/example/realtime-chat/modules/relay"
)

// Module implements the HTTP/WebSocket server module using Fiber.
type Module struct {
	cfg       config.Config
	app       *fiber.App
	handlers  *Handlers
	auths     *auth.Module
	chats     *chat.Module
	relays    *relay.Module
	presences *presence.Module
	caches    *cache.Module // nil when disabled
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates the API module. caches may be nil.
func NewModule(cfg config.Config, auths *auth.Module, chats *chat.Module, relays *relay.Module, presences *presence.Module, caches *cache.Module) *Module {
	return &Module{
		cfg:       cfg,
		auths:     auths,
		chats:     chats,
		relays:    relays,
		presences: presences,
		caches:    caches,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Start initializes and starts the HTTP server.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "Realtime Chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	var onlineCache *cache.Cache
	if m.caches != nil {
		onlineCache = m.caches.Cache()
	}
	m.handlers = NewHandlers(
		m.auths.Service(),
		m.chats.Service(),
		m.relays.Service(),
		m.relays.Hub(),
		m.presences.Tracker(),
		onlineCache,
	)

	m.registerRoutes()

	// Start server in goroutine with startup error detection.
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] Server started on %s", m.cfg.Addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	log.Println("[api] Server stopped")
	return nil
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	authMW := AuthMiddleware(m.auths.Service())

	m.app.Get("/health", m.handlers.HealthCheck)

	// The live channel authenticates during the upgrade: a valid token is
	// required to bind the connection to a user.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, err := m.auths.Service().Authenticate(c.UserContext(), c.Query("token"))
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals(UserContextKey, userID)
		return c.Next()
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	api := m.app.Group("/api/v1")
	api.Post("/auth/register", m.handlers.Register)
	api.Post("/auth/login", m.handlers.Login)

	api.Get("/users", m.handlers.ListUsers)
	api.Get("/users/online", m.handlers.OnlineUsers)
	api.Put("/users/:userId/online", authMW, m.handlers.SetOnline)
	api.Delete("/users", m.handlers.ResetUsers)

	api.Get("/profile", authMW, m.handlers.Profile)
	api.Put("/profile", authMW, m.handlers.UpdateProfile)

	api.Get("/rooms", authMW, m.handlers.MyRooms)
	api.Get("/rooms/all", m.handlers.AllRooms)
	api.Post("/rooms", m.handlers.CreateRoom)
	api.Get("/rooms/:roomId/messages", m.handlers.RoomMessages)
	api.Put("/rooms/:roomId/messages", m.handlers.SyncMessages)
	api.Delete("/rooms", m.handlers.ResetRooms)
	api.Delete("/rooms/:roomName", m.handlers.DeleteRoom)
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("[api] HTTP error: code=%d message=%s error=%v", code, message, err)

	return c.Status(code).JSON(ErrorResponse{
		Error:   "http_error",
		Message: message,
	})
}
