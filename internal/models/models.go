package models

import "time"

// User represents an account within the RudChat relay.
type User struct {
	ID        string    `json:"id"`
	Rno       string    `json:"rno"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Friendship links two users. The pair is unordered: a single record
// covers both orientations and lookups must check both.
type Friendship struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	FriendID  string    `json:"friendId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusRejected = "rejected"
)

// Message is a single direct message. Timestamp is assigned by the
// store at persistence time, never taken from the client.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
