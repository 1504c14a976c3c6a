// Package client implements the RudChat realtime companion: a
// websocket client that authenticates on open, dispatches inbound
// events to callbacks, and transparently re-establishes the session
// with exponential backoff after abnormal closure.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Status is the connection lifecycle state of the controller.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Message mirrors the server's persisted message record.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// Friend describes the counterpart of a friend_added event.
type Friend struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rno  string `json:"rno"`
}

// Outgoing is a message the client wants relayed.
type Outgoing struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

type outFrame struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	UserID string `json:"userId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type inEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrDisconnected is returned by Send when no connection is live. The
// message is dropped, not queued.
var ErrDisconnected = errors.New("client is not connected")

// Conn is the transport surface the controller drives. Tests substitute
// a scripted implementation.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, v any) error
	Close(code websocket.StatusCode, reason string) error
}

// DialFunc opens a transport connection to the given URL.
type DialFunc func(ctx context.Context, url string) (Conn, error)

func defaultDial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c wsConn) Write(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.conn, v)
}

func (c wsConn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}

// Options configures a Client.
type Options struct {
	// URL of the server's /ws endpoint.
	URL string
	// UserID of the authenticated user.
	UserID string
	// Token is the access token presented on the auth frame.
	Token string

	// OnMessage receives every relayed message event.
	OnMessage func(Message)
	// OnFriendAdded fires when someone adds this user as a friend.
	OnFriendAdded func(Friend)

	Logger *slog.Logger
	// Dial overrides the websocket dialer, for tests.
	Dial DialFunc
}

// Client is the reconnection controller. All methods are safe for
// concurrent use.
type Client struct {
	url    string
	userID string
	token  string

	onMessage     func(Message)
	onFriendAdded func(Friend)
	logger        *slog.Logger
	dial          DialFunc

	// after schedules a reconnect callback; tests override it to
	// observe delays without waiting them out.
	after func(d time.Duration, f func()) *time.Timer

	ctx context.Context

	mu      sync.Mutex
	status  Status
	attempt int
	conn    Conn
	timer   *time.Timer
	closed  bool
}

// New constructs a Client. Call Start to open the first connection.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dial := opts.Dial
	if dial == nil {
		dial = defaultDial
	}
	return &Client{
		url:           opts.URL,
		userID:        opts.UserID,
		token:         opts.Token,
		onMessage:     opts.OnMessage,
		onFriendAdded: opts.OnFriendAdded,
		logger:        logger,
		dial:          dial,
		after:         time.AfterFunc,
		ctx:           context.Background(),
	}
}

// Start opens the first connection. Reconnects after abnormal closure
// are handled internally until Close is called or ctx is canceled.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.connect()
}

// Status reports the current lifecycle state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Send relays a message. While disconnected the message is dropped
// with a logged error and an immediate reconnect attempt is triggered
// instead of waiting for the backoff timer.
func (c *Client) Send(ctx context.Context, out Outgoing) error {
	c.mu.Lock()
	conn := c.conn
	status := c.status
	c.mu.Unlock()

	if status != StatusConnected || conn == nil {
		c.logger.Error("send while disconnected, message dropped",
			"receiver", out.ReceiverID, "status", status.String())
		go c.connect()
		return ErrDisconnected
	}

	return conn.Write(ctx, outFrame{Type: "message", Data: out})
}

// Close tears the session down intentionally: the normal-closure code
// is sent and no reconnect is scheduled.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return nil
}

func (c *Client) connect() {
	c.mu.Lock()
	if c.closed || c.status != StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.status = StatusConnecting
	ctx := c.ctx
	c.mu.Unlock()

	conn, err := c.dial(ctx, c.url)
	if err != nil {
		c.logger.Warn("dial failed", "url", c.url, "error", err)
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		c.scheduleReconnect()
		return
	}

	// Authenticate immediately on open.
	if err := conn.Write(ctx, outFrame{Type: "auth", Token: c.token, UserID: c.userID}); err != nil {
		c.logger.Warn("auth frame failed", "error", err)
		_ = conn.Close(websocket.StatusAbnormalClosure, "auth write failed")
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		return
	}
	c.conn = conn
	c.status = StatusConnected
	c.attempt = 0
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.url)
	go c.readLoop(ctx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.handleDisconnect(err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var ev inEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logger.Warn("malformed event dropped", "error", err)
		return
	}

	switch ev.Type {
	case "message":
		if c.onMessage == nil {
			return
		}
		var message Message
		if err := json.Unmarshal(ev.Data, &message); err != nil {
			c.logger.Warn("malformed message event dropped", "error", err)
			return
		}
		c.onMessage(message)
	case "friend_added":
		if c.onFriendAdded == nil {
			return
		}
		var friend Friend
		if err := json.Unmarshal(ev.Data, &friend); err != nil {
			c.logger.Warn("malformed friend_added event dropped", "error", err)
			return
		}
		c.onFriendAdded(friend)
	default:
		// Unknown event types are ignored.
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.conn = nil
	c.status = StatusDisconnected
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}

	// A normal closure is intentional on one side or the other; only
	// abnormal closures warrant reconnecting.
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		c.logger.Info("connection closed")
		return
	}

	c.logger.Warn("connection lost", "error", err)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.timer != nil {
		return
	}

	delay := backoffDelay(c.attempt)
	c.attempt++
	c.logger.Info("reconnect scheduled", "delay", delay, "attempt", c.attempt)

	c.timer = c.after(delay, func() {
		c.mu.Lock()
		c.timer = nil
		c.mu.Unlock()
		c.connect()
	})
}
