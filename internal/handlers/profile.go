package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rudchat/backend/internal/logging"
	"github.com/rudchat/backend/internal/repositories"
)

// ProfileHandler lets a user change their display name. The
// configuration number is immutable and not part of this surface.
type ProfileHandler struct {
	Users    UserStore
	Sessions SessionManager
}

// Update handles PUT /api/v1/profile.
func (h ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		logger.Error("profile dependencies unavailable", "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile services unavailable"})
		return
	}

	userID, err := authenticate(r, h.Sessions)
	if err != nil {
		logger.Warn("profile update unauthorized", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	user, err := h.Users.UpdateName(ctx, userID, req.Name)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("profile update failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, updateProfileResponse{User: toUserPayload(user)})
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

type updateProfileResponse struct {
	User userPayload `json:"user"`
}
