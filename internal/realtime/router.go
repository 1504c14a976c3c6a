package realtime

import (
	"context"
	"log/slog"

	"github.com/rudchat/backend/internal/models"
	"github.com/rudchat/backend/internal/repositories"
)

// Router validates inbound messages, persists them, and fans the stored
// record out to every live session of sender and receiver. Delivery is
// best-effort: an offline receiver sees the message on its next history
// fetch. No ordering lock spans concurrent sends; the store-assigned
// timestamp is authoritative for display order.
type Router struct {
	messages repositories.MessageRepository
	registry *Registry
	logger   *slog.Logger
}

// NewRouter constructs a router over the given message log and session
// registry. The registry must be the same instance the connection
// handlers register into.
func NewRouter(messages repositories.MessageRepository, registry *Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{messages: messages, registry: registry, logger: logger}
}

// Route handles one message frame from an authenticated session.
func (r *Router) Route(ctx context.Context, sender *Session, payload MessagePayload) {
	if err := payload.Validate(); err != nil {
		r.logger.Warn("invalid message payload dropped", "error", err)
		return
	}

	// The channel is authenticated; a payload claiming another sender is
	// discarded rather than relayed under a borrowed identity.
	if userID := sender.UserID(); userID != payload.SenderID {
		r.logger.Warn("message sender mismatch dropped",
			"session_user", userID, "claimed_sender", payload.SenderID)
		return
	}

	message, err := r.messages.Create(ctx, payload.SenderID, payload.ReceiverID, payload.Text)
	if err != nil {
		r.logger.Error("persist message failed",
			"sender", payload.SenderID, "receiver", payload.ReceiverID, "error", err)
		sender.Push(Event{Type: FrameError, Data: ErrorPayload{
			Code:    ErrorCodeDeliveryFailed,
			Message: "message could not be delivered",
		}})
		return
	}

	r.registry.Broadcast(Event{Type: FrameMessage, Data: message},
		message.SenderID, message.ReceiverID)
}

// FriendAdded pushes a friend_added event to every live session of the
// newly befriended user. Called by the request layer after a
// successful add.
func (r *Router) FriendAdded(adder models.User, toUserID string) {
	r.registry.Broadcast(Event{Type: FrameFriendAdded, Data: FriendAddedPayload{
		ID:   adder.ID,
		Name: adder.Name,
		Rno:  adder.Rno,
	}}, toUserID)
}
