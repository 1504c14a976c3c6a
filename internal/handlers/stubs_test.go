package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rudchat/backend/internal/auth"
	"github.com/rudchat/backend/internal/logging"
	"github.com/rudchat/backend/internal/models"
	"github.com/rudchat/backend/internal/repositories"
)

// testStack wires the in-memory repositories and a real token manager
// the way the server process does, so handler tests exercise the same
// contracts production code depends on.
type testStack struct {
	users    *repositories.MemoryUserRepository
	friends  *repositories.MemoryFriendRepository
	messages *repositories.MemoryMessageRepository
	sessions *auth.Manager
}

func newTestStack() testStack {
	users := repositories.NewMemoryUserRepository()
	return testStack{
		users:    users,
		friends:  repositories.NewMemoryFriendRepository(users),
		messages: repositories.NewMemoryMessageRepository(),
		sessions: auth.NewManager([]byte("test-secret"), 15*time.Minute, 24*time.Hour, auth.NewInMemorySessionStore()),
	}
}

func (s testStack) createUser(t *testing.T, name, password string) (models.User, models.SessionTokens) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := s.users.Create(context.Background(), name, string(hash))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tokens, err := s.sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return user, tokens
}

// testRequest builds a request whose context carries a silent logger.
func testRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return req.WithContext(logging.WithLogger(req.Context(), logger))
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

type notification struct {
	adder models.User
	to    string
}

func (n *recordingNotifier) FriendAdded(adder models.User, toUserID string) {
	n.mu.Lock()
	n.calls = append(n.calls, notification{adder: adder, to: toUserID})
	n.mu.Unlock()
}

func (n *recordingNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.calls))
	copy(out, n.calls)
	return out
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }
