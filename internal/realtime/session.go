package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Conn is the transport a session reads frames from and writes events
// to. The production implementation wraps a websocket connection; tests
// substitute an in-memory script.
type Conn interface {
	// Read blocks until the next text frame arrives or the transport
	// closes. A non-nil error is fatal to the session.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, ev Event) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// NewConn adapts a websocket connection to the session transport.
func NewConn(conn *websocket.Conn) Conn {
	return wsConn{conn: conn}
}

type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c wsConn) Write(ctx context.Context, ev Event) error {
	return wsjson.Write(ctx, c.conn, ev)
}

func (c wsConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c wsConn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}

// TokenVerifier authenticates the access token presented on an auth
// frame, returning the user identifier it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

const (
	sendBuffer        = 64
	writeTimeout      = 10 * time.Second
	keepAliveInterval = 25 * time.Second
	pingTimeout       = 5 * time.Second
)

// Session is the per-connection state machine:
// Unauthenticated -> Authenticated -> Closed, with Closed terminal.
// Each session is driven by its own read goroutine plus a write
// goroutine draining the send buffer.
type Session struct {
	conn     Conn
	registry *Registry
	router   *Router
	verifier TokenVerifier

	send chan Event
	done chan struct{}

	closeOnce sync.Once

	mu     sync.Mutex
	state  sessionState
	userID string
	logger *slog.Logger
}

// NewSession constructs a session in the unauthenticated state.
func NewSession(conn Conn, registry *Registry, router *Router, verifier TokenVerifier, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:     conn,
		registry: registry,
		router:   router,
		verifier: verifier,
		logger:   logger,
		send:     make(chan Event, sendBuffer),
		done:     make(chan struct{}),
	}
}

// UserID returns the authenticated user identifier, empty until the
// auth frame is accepted.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// log returns the session logger. Authentication enriches the logger
// with the user id, so every reader goes through the mutex.
func (s *Session) log() *slog.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// Run drives the session until the transport closes or ctx is
// canceled. It blocks the caller; the connection handler owns exactly
// one Run per connection.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writeLoop(ctx)
	go s.keepAlive(ctx)

	s.readLoop(ctx)
	s.close()
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			// Transport close or fatal read error ends the session.
			s.log().Debug("session read ended", "error", err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// A single bad frame does not cost the connection.
			s.log().Warn("malformed frame dropped", "error", err)
			continue
		}

		s.handleFrame(ctx, frame)
	}
}

func (s *Session) handleFrame(ctx context.Context, frame Frame) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case stateUnauthenticated:
		if frame.Type != FrameAuth {
			// Dropped, not an error: the client may race its auth frame.
			return
		}
		s.authenticate(frame)

	case stateAuthenticated:
		if frame.Type != FrameMessage {
			return
		}

		var payload MessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			s.log().Warn("malformed message payload dropped", "error", err)
			return
		}
		s.router.Route(ctx, s, payload)

	case stateClosed:
	}
}

func (s *Session) authenticate(frame Frame) {
	userID, err := s.verifier.Verify(frame.Token)
	if err != nil {
		// Same resilience policy as malformed frames: the client keeps
		// its connection and may retry with a fresh token.
		s.log().Warn("auth frame rejected", "error", err)
		return
	}

	s.mu.Lock()
	if s.state != stateUnauthenticated {
		s.mu.Unlock()
		return
	}
	s.state = stateAuthenticated
	s.userID = userID
	s.logger = s.logger.With(slog.String("user_id", userID))
	logger := s.logger
	s.mu.Unlock()

	s.registry.Register(userID, s)
	logger.Info("session authenticated")
}

// Push queues an event for delivery. A full buffer drops the event for
// this session rather than blocking the broadcaster.
func (s *Session) Push(ev Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- ev:
	default:
		s.log().Warn("send buffer full, event dropped", "type", ev.Type)
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.send:
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := s.conn.Write(writeCtx, ev)
			cancel()
			if err != nil {
				s.log().Warn("session write failed", "type", ev.Type, "error", err)
				return
			}
		}
	}
}

func (s *Session) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			_ = s.conn.Ping(pingCtx)
			cancel()
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		userID := s.userID
		logger := s.logger
		s.state = stateClosed
		s.mu.Unlock()

		close(s.done)
		if userID != "" {
			s.registry.Unregister(userID, s)
		}
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
		logger.Info("session closed")
	})
}
