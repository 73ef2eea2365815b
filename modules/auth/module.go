package auth

import (
	"context"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/realtime-chat/modules/store"
)

// Module provides authentication services.
type Module struct {
	stores    *store.Module
	jwtConfig JWTConfig
	service   *Service
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new auth module over the store module.
func NewModule(stores *store.Module, jwtConfig JWTConfig) *Module {
	return &Module{
		stores:    stores,
		jwtConfig: jwtConfig,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start wires the auth service.
func (m *Module) Start(_ context.Context) error {
	m.service = NewService(m.stores.Store(), NewPasswordHasher(), NewJWTManager(m.jwtConfig))
	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Service returns the auth service. Valid after Start.
func (m *Module) Service() *Service {
	return m.service
}
