package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(store SessionStore) *Manager {
	return NewManager([]byte("test-secret"), 15*time.Minute, 24*time.Hour, store)
}

func TestManagerIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	manager := newTestManager(store)

	tokens, err := manager.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("issued tokens incomplete: %+v", tokens)
	}
	if !store.Has(tokens.RefreshToken) {
		t.Fatal("refresh token not persisted")
	}

	userID, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("verify user id = %q, want %q", userID, "user-1")
	}
}

func TestManagerIssueRequiresUserID(t *testing.T) {
	manager := newTestManager(NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerVerifyRejectsBadTokens(t *testing.T) {
	manager := newTestManager(NewInMemorySessionStore())
	other := NewManager([]byte("other-secret"), 15*time.Minute, 24*time.Hour, NewInMemorySessionStore())

	foreign, err := other.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong secret", token: foreign.AccessToken},
	}
	for _, tc := range cases {
		if _, err := manager.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, ErrInvalidToken)
		}
	}
}

func TestManagerVerifyRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(NewInMemorySessionStore())

	issuedAt := time.Now().UTC()
	manager.nowFunc = func() time.Time { return issuedAt }

	tokens, err := manager.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.nowFunc = func() time.Time { return issuedAt.Add(16 * time.Minute) }
	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify expired token error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestManagerRefreshRotates(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	manager := newTestManager(store)

	issued, err := manager.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := manager.Refresh(ctx, issued.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == issued.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	if store.Has(issued.RefreshToken) {
		t.Fatal("consumed refresh token still in store")
	}
	if !store.Has(rotated.RefreshToken) {
		t.Fatal("rotated refresh token not persisted")
	}

	userID, err := manager.Verify(rotated.AccessToken)
	if err != nil || userID != "user-1" {
		t.Fatalf("verify rotated access token: user=%q err=%v", userID, err)
	}

	if _, err := manager.Refresh(ctx, issued.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("replayed refresh error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestManagerRefreshRejectsExpiredSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	manager := newTestManager(store)

	issuedAt := time.Now().UTC()
	manager.nowFunc = func() time.Time { return issuedAt }

	tokens, err := manager.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.nowFunc = func() time.Time { return issuedAt.Add(25 * time.Hour) }
	if _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("refresh expired error = %v, want %v", err, ErrRefreshTokenExpired)
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expired refresh token still in store")
	}
}

func TestManagerRevoke(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	manager := newTestManager(store)

	tokens, err := manager.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.Revoke(ctx, tokens.RefreshToken)
	if store.Has(tokens.RefreshToken) {
		t.Fatal("revoked refresh token still in store")
	}

	manager.Revoke(ctx, "")
	manager.Revoke(ctx, "unknown")
}
