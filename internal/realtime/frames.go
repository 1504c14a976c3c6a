package realtime

import (
	"encoding/json"
	"errors"
)

// Frame types exchanged on the realtime channel. Client-to-server
// frames carry auth and message; server-to-client events carry
// message, friend_added and error.
const (
	FrameAuth        = "auth"
	FrameMessage     = "message"
	FrameFriendAdded = "friend_added"
	FrameError       = "error"
)

// Frame is an inbound client frame. Data is left raw until the frame
// type is known.
type Frame struct {
	Type   string          `json:"type"`
	Token  string          `json:"token,omitempty"`
	UserID string          `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound server frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// MessagePayload is the body of an inbound message frame.
type MessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// Validate checks the payload shape. A failing payload is dropped by
// the session, never forwarded to the store.
func (p MessagePayload) Validate() error {
	switch {
	case p.SenderID == "":
		return errors.New("missing sender id")
	case p.ReceiverID == "":
		return errors.New("missing receiver id")
	case p.Text == "":
		return errors.New("empty message text")
	}
	return nil
}

// FriendAddedPayload notifies a user that someone added them by
// configuration number.
type FriendAddedPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rno  string `json:"rno"`
}

// ErrorPayload reports a channel-level failure to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCodeDeliveryFailed signals that an inbound message could not be
// persisted and was not delivered.
const ErrorCodeDeliveryFailed = "delivery_failed"
