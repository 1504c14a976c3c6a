package repositories

import (
	"context"

	"github.com/rudchat/backend/internal/models"
)

// MessageRepository defines data access for the message log.
type MessageRepository interface {
	// Create appends a message, assigning the identifier and timestamp at
	// persistence time. The returned record is the stored one.
	Create(ctx context.Context, senderID, receiverID, text string) (models.Message, error)
	// ListBetween returns the conversation between two users in both
	// orientations, sorted non-decreasing by timestamp.
	ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error)
}
