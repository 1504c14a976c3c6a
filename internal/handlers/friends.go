package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rudchat/backend/internal/logging"
)

// FriendHandler provides friend listing and add-by-configuration-number
// endpoints.
type FriendHandler struct {
	Friends  FriendStore
	Users    UserStore
	Sessions SessionManager
	Notify   Notifier
}

// Handle dispatches /api/v1/friends by method: GET lists the caller's
// accepted friends, POST adds one by configuration number.
func (h FriendHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.add(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h FriendHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil || h.Sessions == nil {
		logger.Error("friend dependencies unavailable", "hasFriends", h.Friends != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	userID, err := authenticate(r, h.Sessions)
	if err != nil {
		logger.Warn("friend list unauthorized", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	friends, err := h.Friends.ListFriends(ctx, userID)
	if err != nil {
		logger.Error("list friends failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch friends"})
		return
	}

	payload := make([]userPayload, 0, len(friends))
	for _, friend := range friends {
		payload = append(payload, toUserPayload(friend))
	}

	respondJSON(ctx, w, http.StatusOK, listFriendsResponse{Friends: payload})
}

func (h FriendHandler) add(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "add_friend")
	defer span.End()
	logger := logging.FromContext(ctx)

	if h.Friends == nil || h.Users == nil || h.Sessions == nil {
		logger.Error("friend dependencies unavailable",
			"hasFriends", h.Friends != nil, "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	userID, err := authenticate(r, h.Sessions)
	if err != nil {
		logger.Warn("add friend unauthorized", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req addFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid add friend payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.FriendRno = strings.TrimSpace(req.FriendRno)
	if req.FriendRno == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "friendRno is required"})
		return
	}

	ok, err := h.Friends.Add(ctx, userID, req.FriendRno)
	if err != nil {
		logger.Error("add friend failed", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to add friend"})
		return
	}
	if !ok {
		// Unknown rno, self-add and duplicate all collapse to one
		// client-facing outcome, mirroring the store contract.
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "friend not found or already added"})
		return
	}

	friend, err := h.Users.FindByRno(ctx, req.FriendRno)
	if err != nil {
		logger.Error("resolve new friend failed", "error", err, "rno", req.FriendRno)
		respondJSON(ctx, w, http.StatusOK, addFriendResponse{Success: true})
		return
	}

	if h.Notify != nil {
		if adder, err := h.Users.FindByID(ctx, userID); err == nil {
			h.Notify.FriendAdded(adder, friend.ID)
		} else {
			logger.Warn("resolve adder for notification failed", "error", err, "userId", userID)
		}
	}

	payload := toUserPayload(friend)
	respondJSON(ctx, w, http.StatusOK, addFriendResponse{Success: true, Friend: &payload})
}

type addFriendRequest struct {
	FriendRno string `json:"friendRno"`
}

type addFriendResponse struct {
	Success bool         `json:"success"`
	Friend  *userPayload `json:"friend,omitempty"`
}

type listFriendsResponse struct {
	Friends []userPayload `json:"friends"`
}
