// Package auth provides registration, login, and bearer-token resolution
// over the session store.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/store"
)

var (
	// ErrUserExists is returned when the username is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameEmpty is returned when the username is missing.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrPasswordEmpty is returned when the password is missing.
	ErrPasswordEmpty = errors.New("password cannot be empty")
)

// Service handles authentication business logic.
type Service struct {
	store  store.Store
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewService creates a new auth Service.
func NewService(st store.Store, hasher *PasswordHasher, jwt *JWTManager) *Service {
	return &Service{
		store:  st,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a new user account and returns a signed token. Every new
// user is implicitly joined to the Global room, which is created on the first
// registration.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" {
		return "", ErrUsernameEmpty
	}
	if password == "" {
		return "", ErrPasswordEmpty
	}

	_, err := s.store.FindUser(ctx, store.UserCriteria{UserName: username})
	if err == nil {
		return "", ErrUserExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check username: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	global, err := s.ensureGlobalRoom(ctx)
	if err != nil {
		return "", err
	}

	user := &domain.User{
		UserID:       uuid.New().String(),
		UserName:     username,
		PasswordHash: passwordHash,
		Online:       false,
		Rooms:        []string{global.RoomID},
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	members := append(global.Users, user.UserID)
	if err := s.store.UpdateRoom(ctx, global.RoomID, store.RoomPatch{Users: &members}); err != nil {
		return "", fmt.Errorf("failed to join global room: %w", err)
	}

	token, err := s.jwt.Generate(user.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Login authenticates a user and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.FindUser(ctx, store.UserCriteria{UserName: username})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a bearer token to a user id, verifying that the user
// still exists in the store.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return "", err
	}

	if _, err := s.store.FindUser(ctx, store.UserCriteria{UserID: claims.UserID}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	return claims.UserID, nil
}

// ensureGlobalRoom returns the Global room, creating it if it does not
// exist yet.
func (s *Service) ensureGlobalRoom(ctx context.Context) (*domain.Room, error) {
	room, err := s.store.FindRoom(ctx, store.RoomCriteria{RoomName: domain.GlobalRoomName})
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to find global room: %w", err)
	}

	room = &domain.Room{
		RoomID:   uuid.New().String(),
		RoomName: domain.GlobalRoomName,
		Type:     domain.RoomTypeGroup,
		Users:    []string{},
		Messages: []domain.Message{},
	}
	if err := s.store.InsertRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create global room: %w", err)
	}
	return room, nil
}
