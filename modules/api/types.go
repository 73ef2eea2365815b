package api

import (
	domain "github.com/example/realtime-chat/domain/chat"
)

// ErrorResponse is the error body returned by the REST API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CredentialsRequest carries a username/password pair for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	JWTToken string `json:"jwtToken"`
}

// CreateRoomRequest is the request for creating a private or group room.
type CreateRoomRequest struct {
	RoomName string `json:"roomName"`
	Type     string `json:"type"`
	ImgURL   string `json:"imgUrl,omitempty"`
	UserID   string `json:"userId,omitempty"`
	FriendID string `json:"friendId,omitempty"`
}

// UpdateOnlineRequest sets a user's durable online flag.
type UpdateOnlineRequest struct {
	Online bool `json:"online"`
}

// UpdateProfileRequest updates mutable profile fields.
type UpdateProfileRequest struct {
	ProfileImgURL string `json:"profileImgUrl"`
}

// SyncMessagesRequest is the bulk message sync request for a room.
type SyncMessagesRequest struct {
	MessageList []domain.Message `json:"messageList"`
}

// SyncMessagesResponse returns the reconciled message log.
type SyncMessagesResponse struct {
	Msg  string           `json:"msg"`
	List []domain.Message `json:"list"`
}
