package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/realtime-chat/config"
	"github.com/example/realtime-chat/modules/api"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/cache"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/presence"
	"github.com/example/realtime-chat/modules/relay"
	"github.com/example/realtime-chat/modules/store"
)

func main() {
	log.Println("=== Realtime Chat Backend ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storeModule := store.NewModule(cfg.DBPath)
	authModule := auth.NewModule(storeModule, auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Issuer:    cfg.JWTIssuer,
	})
	chatModule := chat.NewModule(storeModule)
	relayModule := relay.NewModule()
	presenceModule := presence.NewModule(storeModule, relayModule)

	var cacheModule *cache.Module
	if cfg.RedisAddr != "" {
		cacheModule = cache.NewModule(cfg.RedisAddr)
	}

	apiModule := api.NewModule(cfg, authModule, chatModule, relayModule, presenceModule, cacheModule)

	// Register modules with the framework.
	// Order: storage first, then domain modules, the API server last.
	app.Register(storeModule)    // SQLite-backed session store
	app.Register(authModule)     // Credentials + JWT
	app.Register(chatModule)     // Rooms, users, message log + persist phase
	app.Register(relayModule)    // Connection hub + live fan-out
	app.Register(presenceModule) // Online/offline tracking
	if cacheModule != nil {
		app.Register(cacheModule) // Online-users cache (optional)
	}
	app.Register(apiModule) // HTTP/WebSocket API

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Storage: SQLite via GORM (document-style records)")
	if cfg.RedisAddr != "" {
		log.Printf("  - Cache: Redis at %s (online users)", cfg.RedisAddr)
	} else {
		log.Println("  - Cache: disabled (set CHAT_REDIS_ADDR to enable)")
	}
	log.Println("")
	log.Println("Event-Driven Flow:")
	log.Println("  - MessageSent events -> chat module -> persisted room log")
	log.Println("  - PresenceChanged events -> cache module -> invalidation")
	log.Println("  - RoomCreated events -> relay module -> live clients")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost%s):", cfg.Addr)
	log.Println("  GET    /health                        - Health check")
	log.Println("  POST   /api/v1/auth/register          - Register and get a token")
	log.Println("  POST   /api/v1/auth/login             - Login and get a token")
	log.Println("  GET    /api/v1/users                  - List all users")
	log.Println("  GET    /api/v1/users/online           - List online users")
	log.Println("  PUT    /api/v1/users/:userId/online   - Set a user's online flag")
	log.Println("  GET    /api/v1/profile                - Authenticated user profile")
	log.Println("  PUT    /api/v1/profile                - Update profile image")
	log.Println("  GET    /api/v1/rooms                  - Rooms of the authenticated user")
	log.Println("  GET    /api/v1/rooms/all              - List all rooms")
	log.Println("  POST   /api/v1/rooms                  - Create a room")
	log.Println("  GET    /api/v1/rooms/:roomId/messages - Room message log")
	log.Println("  PUT    /api/v1/rooms/:roomId/messages - Bulk message sync")
	log.Println("  DELETE /api/v1/rooms/:roomName        - Delete a room by name")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost%s/ws?token=<jwt>):", cfg.Addr)
	log.Println("  Events: connectRooms, send-message, userConnect, userDisconnect")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
