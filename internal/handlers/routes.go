package handlers

import (
	"net/http"

	"github.com/rudchat/backend/internal/realtime"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.Limiter}
	friends := FriendHandler{Friends: deps.Friends, Users: deps.Users, Sessions: deps.Sessions, Notify: deps.Notifier}
	messages := MessageHandler{Messages: deps.Messages, Sessions: deps.Sessions}
	profile := ProfileHandler{Users: deps.Users, Sessions: deps.Sessions}
	rt := RealtimeHandler{Registry: deps.Registry, Router: deps.Router, Verifier: deps.Sessions, AllowedOrigins: deps.AllowedOrigins}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/friends", friends.Handle)
	mux.HandleFunc("/api/v1/messages/{friendId}", messages.History)
	mux.HandleFunc("/api/v1/profile", profile.Update)
	mux.HandleFunc("/ws", rt.Handle)
}

// Dependencies aggregates collaborators required by HTTP handlers. The
// repositories here must be the same instances the realtime router
// writes through, so history fetches observe live broadcasts.
type Dependencies struct {
	Users    UserStore
	Sessions SessionManager
	Friends  FriendStore
	Messages MessageStore
	Notifier Notifier
	Limiter  RateLimiter

	Registry *realtime.Registry
	Router   *realtime.Router

	AllowedOrigins []string
}
