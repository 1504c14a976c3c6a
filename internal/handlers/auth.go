package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rudchat/backend/internal/auth"
	"github.com/rudchat/backend/internal/logging"
	"github.com/rudchat/backend/internal/models"
	"github.com/rudchat/backend/internal/repositories"
)

// AuthHandler implements user signup, login and token refresh.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Limiter  RateLimiter
}

// SignUp handles POST /api/v1/auth/signup requests. The response
// includes the issued configuration number the user shares to be added
// as a friend.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "signup") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many signup attempts"})
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Password == "" {
		logger.Warn("signup missing fields")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name and password are required"})
		return
	}

	if len(req.Password) < 8 {
		logger.Warn("signup password too short")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("signup failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	user, err := h.Users.Create(ctx, req.Name, string(hashed))
	if err != nil {
		logger.Error("signup failed to create user", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("signup failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, authResponse{User: toUserPayload(user), Tokens: tokens})
}

// Login handles POST /api/v1/auth/login requests. Users log in with
// their configuration number and password.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Rno = strings.TrimSpace(req.Rno)
	if req.Rno == "" || req.Password == "" {
		logger.Warn("login missing credentials")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "rno and password are required"})
		return
	}

	user, err := h.Users.FindByRno(ctx, req.Rno)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("login user lookup failed", "rno", req.Rno, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify credentials"})
			return
		}
		logger.Warn("login unknown rno", "rno", req.Rno)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid rno or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid rno or password"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{User: toUserPayload(user), Tokens: tokens})
}

// Refresh exchanges a refresh token for a new session.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		logger.Warn("missing refresh token")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refresh token is required"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrRefreshTokenExpired) || errors.Is(err, auth.ErrSessionNotFound) {
			status = http.StatusUnauthorized
		}
		logger.Error("refresh failed", "error", err, "status", status)
		respondJSON(ctx, w, status, map[string]string{"error": "unable to refresh session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, refreshResponse{Tokens: tokens})
}

type signUpRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Rno      string `json:"rno"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	User   userPayload          `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

type refreshResponse struct {
	Tokens models.SessionTokens `json:"tokens"`
}
