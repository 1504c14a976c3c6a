package repositories

import (
	"context"

	"github.com/rudchat/backend/internal/models"
)

// FriendRepository defines data access for the friendship graph.
type FriendRepository interface {
	// Add creates an accepted friendship between userID and the user
	// identified by friendRno. It returns false (without error) when the
	// configuration number is unknown, the target is the caller, or the
	// pair is already related in either orientation.
	Add(ctx context.Context, userID, friendRno string) (bool, error)
	// ListFriends resolves accepted friendships in both orientations to
	// user records. Friendships pointing at unknown users are dropped.
	ListFriends(ctx context.Context, userID string) ([]models.User, error)
	// Get returns the friendship between two users, checking both
	// orientations. ErrNotFound when the pair is unrelated.
	Get(ctx context.Context, userID, otherID string) (models.Friendship, error)
}
