package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rudchat/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided refresh token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidToken indicates an access token that failed signature or
	// claim verification.
	ErrInvalidToken = errors.New("invalid access token")
)

// SessionStore persists issued refresh tokens so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

// Session represents a refresh token issued to a user.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Manager issues signed access tokens alongside stored refresh tokens.
// The access token is a short-lived JWT verifiable without a store
// round-trip, which is what lets the realtime channel authenticate a
// session from the auth frame alone.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	store SessionStore

	nowFunc func() time.Time
}

// NewManager constructs a Manager signing access tokens with the given
// secret and issuing refresh tokens through the provided store.
func NewManager(secret []byte, accessTTL, refreshTTL time.Duration, store SessionStore) *Manager {
	if len(secret) == 0 {
		panic("auth: token secret must not be empty")
	}
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new pair of access and refresh tokens for the provided user identifier.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.nowFunc()
	accessExpiresAt := now.Add(m.accessTTL)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	if err := m.store.Save(ctx, Session{
		RefreshToken: refreshToken,
		UserID:       userID,
		ExpiresAt:    tokens.RefreshExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Verify validates an access token and returns the user identifier it
// was issued for.
func (m *Manager) Verify(accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(accessToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.nowFunc))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// Refresh exchanges a refresh token for a new session token pair. The
// presented token is consumed whether or not it is still valid.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if m.nowFunc().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, session.UserID)
}

// Revoke removes the provided refresh token from the active session store.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	_ = m.store.Delete(ctx, refreshToken)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
