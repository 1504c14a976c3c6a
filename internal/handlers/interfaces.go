package handlers

import (
	"context"

	"github.com/rudchat/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth
// and profile handlers.
type UserStore interface {
	Create(ctx context.Context, name, passwordHash string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByRno(ctx context.Context, rno string) (models.User, error)
	UpdateName(ctx context.Context, id, name string) (models.User, error)
}

// SessionManager issues, verifies and refreshes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Verify(accessToken string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// FriendStore captures operations required by the friend handlers.
type FriendStore interface {
	Add(ctx context.Context, userID, friendRno string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]models.User, error)
	Get(ctx context.Context, userID, otherID string) (models.Friendship, error)
}

// MessageStore captures persistence for conversation history.
type MessageStore interface {
	ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error)
}

// Notifier pushes realtime notifications triggered by request-layer
// actions. Implemented by the realtime router.
type Notifier interface {
	FriendAdded(adder models.User, toUserID string)
}
