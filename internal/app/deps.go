package app

import (
	"log/slog"
	"time"

	"github.com/rudchat/backend/internal/auth"
	"github.com/rudchat/backend/internal/config"
	"github.com/rudchat/backend/internal/db"
	"github.com/rudchat/backend/internal/handlers"
	"github.com/rudchat/backend/internal/middleware"
	"github.com/rudchat/backend/internal/realtime"
	"github.com/rudchat/backend/internal/repositories"
)

// stores groups one consistent set of repository instances. The request
// layer and the realtime router must share it: history fetched over
// HTTP has to contain exactly what was broadcast live.
type stores struct {
	users    repositories.UserRepository
	friends  repositories.FriendRepository
	messages repositories.MessageRepository
	sessions auth.SessionStore
}

func buildPostgresStores(pool db.Pool) stores {
	users := repositories.NewPostgresUserRepository(pool)
	return stores{
		users:    users,
		friends:  repositories.NewPostgresFriendRepository(pool, users),
		messages: repositories.NewPostgresMessageRepository(pool),
		sessions: repositories.NewPostgresSessionStore(pool),
	}
}

func buildMemoryStores() stores {
	users := repositories.NewMemoryUserRepository()
	return stores{
		users:    users,
		friends:  repositories.NewMemoryFriendRepository(users),
		messages: repositories.NewMemoryMessageRepository(),
		sessions: auth.NewInMemorySessionStore(),
	}
}

// buildDependencies wires together the concrete implementations used by
// the HTTP handlers and the realtime core.
func buildDependencies(s stores, cfg config.Config, logger *slog.Logger) handlers.Dependencies {
	registry := realtime.NewRegistry()
	router := realtime.NewRouter(s.messages, registry, logger)
	manager := auth.NewManager([]byte(cfg.TokenSecret), cfg.AccessTTL, cfg.RefreshTTL, s.sessions)
	limiter := middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute)

	return handlers.Dependencies{
		Users:          s.users,
		Sessions:       manager,
		Friends:        s.friends,
		Messages:       s.messages,
		Notifier:       router,
		Limiter:        limiter,
		Registry:       registry,
		Router:         router,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}
