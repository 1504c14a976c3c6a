package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/rudchat/backend/internal/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubConn struct {
	mu     sync.Mutex
	reads  chan []byte
	writes []Event
	closed bool
	code   websocket.StatusCode
}

func newStubConn() *stubConn {
	return &stubConn{reads: make(chan []byte, 8)}
}

func (c *stubConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-c.reads:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (c *stubConn) Write(_ context.Context, ev Event) error {
	c.mu.Lock()
	c.writes = append(c.writes, ev)
	c.mu.Unlock()
	return nil
}

func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) Close(code websocket.StatusCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.code = code
	}
	return nil
}

func (c *stubConn) closeCode() (websocket.StatusCode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.closed
}

type stubVerifier struct {
	users map[string]string
}

func (v stubVerifier) Verify(token string) (string, error) {
	userID, ok := v.users[token]
	if !ok {
		return "", errors.New("token rejected")
	}
	return userID, nil
}

func newTestSession(conn Conn, registry *Registry, router *Router, verifier TokenVerifier) *Session {
	return NewSession(conn, registry, router, verifier, discardLogger())
}

func TestSessionAuthRegisters(t *testing.T) {
	registry := NewRegistry()
	conn := newStubConn()
	s := newTestSession(conn, registry, nil, stubVerifier{users: map[string]string{"tok": "user-1"}})

	s.handleFrame(context.Background(), Frame{Type: FrameAuth, Token: "tok"})

	if got := s.UserID(); got != "user-1" {
		t.Fatalf("user id = %q, want %q", got, "user-1")
	}
	if got := len(registry.SessionsFor("user-1")); got != 1 {
		t.Fatalf("registered sessions = %d, want 1", got)
	}
}

func TestSessionRejectedTokenKeepsConnection(t *testing.T) {
	registry := NewRegistry()
	conn := newStubConn()
	s := newTestSession(conn, registry, nil, stubVerifier{users: map[string]string{"tok": "user-1"}})

	s.handleFrame(context.Background(), Frame{Type: FrameAuth, Token: "wrong"})

	if got := s.UserID(); got != "" {
		t.Fatalf("user id = %q, want empty", got)
	}
	if got := len(registry.SessionsFor("user-1")); got != 0 {
		t.Fatalf("registered sessions = %d, want 0", got)
	}
	if _, closed := conn.closeCode(); closed {
		t.Fatal("connection closed after rejected auth frame")
	}

	// The session may retry with a valid token on the same connection.
	s.handleFrame(context.Background(), Frame{Type: FrameAuth, Token: "tok"})
	if got := s.UserID(); got != "user-1" {
		t.Fatalf("user id after retry = %q, want %q", got, "user-1")
	}
}

func TestSessionDropsMessageBeforeAuth(t *testing.T) {
	registry := NewRegistry()
	messages := repositories.NewMemoryMessageRepository()
	router := NewRouter(messages, registry, discardLogger())
	conn := newStubConn()
	s := newTestSession(conn, registry, router, stubVerifier{users: map[string]string{"tok": "alice"}})

	s.handleFrame(context.Background(), Frame{
		Type: FrameMessage,
		Data: json.RawMessage(`{"senderId":"alice","receiverId":"bob","text":"hi"}`),
	})

	stored, err := messages.ListBetween(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("stored %d messages before auth, want 0", len(stored))
	}
}

func TestSessionRunSurvivesMalformedFrame(t *testing.T) {
	registry := NewRegistry()
	messages := repositories.NewMemoryMessageRepository()
	router := NewRouter(messages, registry, discardLogger())
	conn := newStubConn()
	s := newTestSession(conn, registry, router, stubVerifier{users: map[string]string{"tok": "user-1"}})

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	conn.reads <- []byte(`{not json`)
	conn.reads <- []byte(`{"type":"auth","token":"tok"}`)
	close(conn.reads)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after transport close")
	}

	if got := s.UserID(); got != "user-1" {
		t.Fatalf("user id = %q, want %q (auth frame after garbage)", got, "user-1")
	}
	if got := len(registry.SessionsFor("user-1")); got != 0 {
		t.Fatalf("registered sessions after close = %d, want 0", got)
	}
	if code, closed := conn.closeCode(); !closed || code != websocket.StatusNormalClosure {
		t.Fatalf("close code = %v (closed=%v), want %v", code, closed, websocket.StatusNormalClosure)
	}
}

func TestSessionCloseUnregisters(t *testing.T) {
	registry := NewRegistry()
	conn := newStubConn()
	s := newTestSession(conn, registry, nil, stubVerifier{users: map[string]string{"tok": "user-1"}})

	s.handleFrame(context.Background(), Frame{Type: FrameAuth, Token: "tok"})
	s.close()
	s.close()

	if got := len(registry.SessionsFor("user-1")); got != 0 {
		t.Fatalf("registered sessions = %d, want 0", got)
	}
	if code, closed := conn.closeCode(); !closed || code != websocket.StatusNormalClosure {
		t.Fatalf("close code = %v (closed=%v), want %v", code, closed, websocket.StatusNormalClosure)
	}
}

func TestSessionPushDropsWhenBufferFull(t *testing.T) {
	registry := NewRegistry()
	s := newTestSession(newStubConn(), registry, nil, nil)

	for i := 0; i < sendBuffer+10; i++ {
		s.Push(Event{Type: FrameMessage})
	}

	if got := len(s.send); got != sendBuffer {
		t.Fatalf("buffered events = %d, want %d", got, sendBuffer)
	}
}

func TestSessionPushConcurrentWithAuth(t *testing.T) {
	registry := NewRegistry()
	s := newTestSession(newStubConn(), registry, nil, stubVerifier{users: map[string]string{"tok": "user-1"}})

	// Pre-fill the buffer so every concurrent Push takes the drop path,
	// which logs through the session logger while authentication
	// enriches it.
	for i := 0; i < sendBuffer; i++ {
		s.Push(Event{Type: FrameMessage})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.Push(Event{Type: FrameMessage})
		}
	}()

	s.handleFrame(context.Background(), Frame{Type: FrameAuth, Token: "tok"})
	<-done

	if got := s.UserID(); got != "user-1" {
		t.Fatalf("user id = %q, want %q", got, "user-1")
	}
	if got := len(s.send); got != sendBuffer {
		t.Fatalf("buffered events = %d, want %d", got, sendBuffer)
	}
}

func TestSessionPushAfterCloseIsNoop(t *testing.T) {
	registry := NewRegistry()
	s := newTestSession(newStubConn(), registry, nil, nil)

	s.close()
	s.Push(Event{Type: FrameMessage})

	if got := len(s.send); got != 0 {
		t.Fatalf("buffered events after close = %d, want 0", got)
	}
}
