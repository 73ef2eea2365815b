// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for the chat backend.
type Config struct {
	// Addr is the listen address for the HTTP/WebSocket server.
	Addr string `env:"CHAT_ADDR" envDefault:":3001"`
	// DBPath is the SQLite database file backing the session store.
	DBPath string `env:"CHAT_DB_PATH" envDefault:"chat.db"`
	// JWTSecret signs issued bearer tokens. Must be overridden in production.
	JWTSecret string `env:"CHAT_JWT_SECRET" envDefault:"change-me-in-production"`
	// JWTIssuer is the issuer claim placed in tokens.
	JWTIssuer string `env:"CHAT_JWT_ISSUER" envDefault:"realtime-chat"`
	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration `env:"CHAT_TOKEN_TTL" envDefault:"24h"`
	// RedisAddr enables the online-users cache when set (host:port).
	RedisAddr string `env:"CHAT_REDIS_ADDR"`
	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:8080"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"CHAT_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
