package handlers

import (
	"net/http"

	"github.com/rudchat/backend/internal/logging"
	"github.com/rudchat/backend/internal/models"
)

// MessageHandler serves conversation history. Live delivery happens on
// the realtime channel; both read from the same message log, so history
// always contains what was broadcast.
type MessageHandler struct {
	Messages MessageStore
	Sessions SessionManager
}

// History handles GET /api/v1/messages/{friendId}: the caller's
// conversation with one friend, oldest first.
func (h MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, span := logging.StartSpan(r.Context(), "message_history")
	defer span.End()
	logger := logging.FromContext(ctx)

	if h.Messages == nil || h.Sessions == nil {
		logger.Error("message dependencies unavailable", "hasMessages", h.Messages != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "message services unavailable"})
		return
	}

	userID, err := authenticate(r, h.Sessions)
	if err != nil {
		logger.Warn("message history unauthorized", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	friendID := r.PathValue("friendId")
	if friendID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "friend id is required"})
		return
	}

	messages, err := h.Messages.ListBetween(ctx, userID, friendID)
	if err != nil {
		logger.Error("fetch message history failed", "error", err, "userId", userID, "friendId", friendID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch messages"})
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	respondJSON(ctx, w, http.StatusOK, messages)
}
