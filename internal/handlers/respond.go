package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rudchat/backend/internal/logging"
	"github.com/rudchat/backend/internal/models"
)

// userPayload is the outward shape of a user: the credential hash never
// leaves the service.
type userPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rno  string `json:"rno"`
}

func toUserPayload(user models.User) userPayload {
	return userPayload{ID: user.ID, Name: user.Name, Rno: user.Rno}
}

var errMissingBearer = errors.New("missing bearer token")

// authenticate resolves the caller's user id from the Authorization
// header.
func authenticate(r *http.Request, sessions SessionManager) (string, error) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return "", errMissingBearer
	}
	return sessions.Verify(strings.TrimSpace(strings.TrimPrefix(header, prefix)))
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
