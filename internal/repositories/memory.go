package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rudchat/backend/internal/models"
)

// The memory repositories implement the store contracts with
// mutex-guarded maps. They back tests and local development without a
// database; the request layer and the realtime router share the same
// instances so live broadcasts and history fetches observe identical
// records.

// MemoryUserRepository holds users in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepository constructs an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

// Create persists a new user with a configuration number unused at
// issuance time.
func (r *MemoryUserRepository) Create(_ context.Context, name, passwordHash string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rno, err := r.unusedRnoLocked()
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:        uuid.NewString(),
		Rno:       rno,
		Name:      name,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC(),
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) unusedRnoLocked() (string, error) {
	for attempt := 0; attempt < rnoMaxAttempts; attempt++ {
		rno, err := newRno()
		if err != nil {
			return "", err
		}
		taken := false
		for _, user := range r.users {
			if user.Rno == rno {
				taken = true
				break
			}
		}
		if !taken {
			return rno, nil
		}
	}
	return "", fmt.Errorf("insert user: exhausted configuration number attempts: %w", ErrConflict)
}

// FindByID fetches a user by identifier.
func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// FindByRno fetches a user by configuration number.
func (r *MemoryUserRepository) FindByRno(_ context.Context, rno string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Rno == rno {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// UpdateName changes a user's display name.
func (r *MemoryUserRepository) UpdateName(_ context.Context, id, name string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	user.Name = name
	r.users[id] = user
	return user, nil
}

// MemoryFriendRepository holds friendships in process memory.
type MemoryFriendRepository struct {
	mu          sync.RWMutex
	friendships map[string]models.Friendship
	users       *MemoryUserRepository
}

// NewMemoryFriendRepository constructs an in-memory friend repository
// resolving users through the provided user repository.
func NewMemoryFriendRepository(users *MemoryUserRepository) *MemoryFriendRepository {
	return &MemoryFriendRepository{
		friendships: make(map[string]models.Friendship),
		users:       users,
	}
}

// Add creates an auto-accepted friendship keyed by the target's
// configuration number.
func (r *MemoryFriendRepository) Add(ctx context.Context, userID, friendRno string) (bool, error) {
	friend, err := r.users.FindByRno(ctx, friendRno)
	if err != nil {
		return false, nil
	}
	if friend.ID == userID {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.friendshipLocked(userID, friend.ID); ok {
		return false, nil
	}

	friendship := models.Friendship{
		ID:        uuid.NewString(),
		UserID:    userID,
		FriendID:  friend.ID,
		Status:    models.FriendStatusAccepted,
		CreatedAt: time.Now().UTC(),
	}
	r.friendships[friendship.ID] = friendship
	return true, nil
}

func (r *MemoryFriendRepository) friendshipLocked(userID, otherID string) (models.Friendship, bool) {
	for _, friendship := range r.friendships {
		if (friendship.UserID == userID && friendship.FriendID == otherID) ||
			(friendship.UserID == otherID && friendship.FriendID == userID) {
			return friendship, true
		}
	}
	return models.Friendship{}, false
}

// ListFriends resolves accepted friendships in both orientations,
// silently dropping entries whose counterpart no longer resolves.
func (r *MemoryFriendRepository) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	r.mu.RLock()
	var others []models.Friendship
	for _, friendship := range r.friendships {
		if friendship.Status != models.FriendStatusAccepted {
			continue
		}
		if friendship.UserID == userID || friendship.FriendID == userID {
			others = append(others, friendship)
		}
	}
	r.mu.RUnlock()

	// Oldest friendship first, matching the durable store's ordering.
	sort.SliceStable(others, func(i, j int) bool { return others[i].CreatedAt.Before(others[j].CreatedAt) })

	var friends []models.User
	for _, friendship := range others {
		otherID := friendship.FriendID
		if friendship.FriendID == userID {
			otherID = friendship.UserID
		}
		user, err := r.users.FindByID(ctx, otherID)
		if err != nil {
			continue
		}
		friends = append(friends, user)
	}

	return friends, nil
}

// Get returns the friendship between two users in either orientation.
func (r *MemoryFriendRepository) Get(_ context.Context, userID, otherID string) (models.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	friendship, ok := r.friendshipLocked(userID, otherID)
	if !ok {
		return models.Friendship{}, ErrNotFound
	}
	return friendship, nil
}

// MemoryMessageRepository holds the message log in process memory.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewMemoryMessageRepository constructs an empty in-memory message repository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

// Create appends a message, assigning identifier and timestamp here.
func (r *MemoryMessageRepository) Create(_ context.Context, senderID, receiverID, text string) (models.Message, error) {
	message := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()

	return message, nil
}

// ListBetween returns the conversation between two users, oldest first.
func (r *MemoryMessageRepository) ListBetween(_ context.Context, userID, otherID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var messages []models.Message
	for _, message := range r.messages {
		if (message.SenderID == userID && message.ReceiverID == otherID) ||
			(message.SenderID == otherID && message.ReceiverID == userID) {
			messages = append(messages, message)
		}
	}

	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Timestamp.Before(messages[j].Timestamp) })
	return messages, nil
}

var _ UserRepository = (*MemoryUserRepository)(nil)
var _ FriendRepository = (*MemoryFriendRepository)(nil)
var _ MessageRepository = (*MemoryMessageRepository)(nil)
