package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rudchat/backend/internal/db"
	"github.com/rudchat/backend/internal/models"
)

// unavailable tags backend failures so callers can detect a store
// outage with errors.Is(err, ErrUnavailable) while keeping the cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user, retrying configuration number generation
// until an unused one is found. The unique index on rno arbitrates
// races between concurrent signups.
func (r *PostgresUserRepository) Create(ctx context.Context, name, passwordHash string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, unavailable("acquire connection", err)
	}
	defer conn.Release()

	for attempt := 0; attempt < rnoMaxAttempts; attempt++ {
		rno, err := newRno()
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

		_, err = conn.Exec(ctx, `
            INSERT INTO users (id, rno, name, password_hash, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, user.ID, user.Rno, user.Name, user.Password, user.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return models.User{}, unavailable("insert user", err)
		}

		return user, nil
	}

	return models.User{}, fmt.Errorf("insert user: exhausted configuration number attempts: %w", ErrConflict)
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findBy(ctx, "id", id)
}

// FindByRno fetches a user by configuration number.
func (r *PostgresUserRepository) FindByRno(ctx context.Context, rno string) (models.User, error) {
	return r.findBy(ctx, "rno", rno)
}

func (r *PostgresUserRepository) findBy(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, unavailable("acquire connection", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, rno, name, password_hash, created_at
        FROM users
        WHERE %s = $1
    `, column), value)

	var user models.User
	if err := row.Scan(&user.ID, &user.Rno, &user.Name, &user.Password, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, unavailable("select user", err)
	}

	return user, nil
}

// UpdateName changes a user's display name. The configuration number is
// immutable and never touched.
func (r *PostgresUserRepository) UpdateName(ctx context.Context, id, name string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, unavailable("acquire connection", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET name = $2
        WHERE id = $1
        RETURNING id, rno, name, password_hash, created_at
    `, id, name)

	var user models.User
	if err := row.Scan(&user.ID, &user.Rno, &user.Name, &user.Password, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, unavailable("update user name", err)
	}

	return user, nil
}

// PostgresFriendRepository provides PostgreSQL-backed persistence for friendships.
type PostgresFriendRepository struct {
	pool  db.Pool
	users *PostgresUserRepository
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool, users *PostgresUserRepository) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool, users: users}
}

// Add creates an auto-accepted friendship keyed by the target's
// configuration number. At most one record may exist per unordered
// pair; the check spans both orientations.
func (r *PostgresFriendRepository) Add(ctx context.Context, userID, friendRno string) (bool, error) {
	friend, err := r.users.FindByRno(ctx, friendRno)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if friend.ID == userID {
		return false, nil
	}

	if _, err := r.Get(ctx, userID, friend.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, unavailable("acquire connection", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friendships (id, user_id, friend_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, uuid.NewString(), userID, friend.ID, models.FriendStatusAccepted, time.Now().UTC())
	if err != nil {
		return false, unavailable("insert friendship", err)
	}

	return true, nil
}

// ListFriends resolves accepted friendships in both orientations to
// user records.
func (r *PostgresFriendRepository) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.rno, u.name, u.password_hash, u.created_at
        FROM friendships f
        JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
        WHERE f.status = $2
          AND (f.user_id = $1 OR f.friend_id = $1)
        ORDER BY f.created_at
    `, userID, models.FriendStatusAccepted)
	if err != nil {
		return nil, unavailable("query friends", err)
	}
	defer rows.Close()

	var friends []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Rno, &user.Name, &user.Password, &user.CreatedAt); err != nil {
			return nil, unavailable("scan friend", err)
		}
		friends = append(friends, user)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate friends", err)
	}

	return friends, nil
}

// Get returns the friendship between two users regardless of which side
// created it.
func (r *PostgresFriendRepository) Get(ctx context.Context, userID, otherID string) (models.Friendship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Friendship{}, unavailable("acquire connection", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, user_id, friend_id, status, created_at
        FROM friendships
        WHERE (user_id = $1 AND friend_id = $2)
           OR (user_id = $2 AND friend_id = $1)
    `, userID, otherID)

	var friendship models.Friendship
	if err := row.Scan(&friendship.ID, &friendship.UserID, &friendship.FriendID, &friendship.Status, &friendship.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Friendship{}, ErrNotFound
		}
		return models.Friendship{}, unavailable("select friendship", err)
	}

	return friendship, nil
}

// PostgresMessageRepository provides PostgreSQL-backed persistence for messages.
type PostgresMessageRepository struct {
	pool db.Pool
}

// NewPostgresMessageRepository constructs a message repository backed by PostgreSQL.
func NewPostgresMessageRepository(pool db.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

// Create appends a message to the log. Identifier and timestamp are
// assigned here, at persistence time.
func (r *PostgresMessageRepository) Create(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Message{}, unavailable("acquire connection", err)
	}
	defer conn.Release()

	message := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now().UTC(),
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO messages (id, sender_id, receiver_id, text, timestamp)
        VALUES ($1, $2, $3, $4, $5)
    `, message.ID, message.SenderID, message.ReceiverID, message.Text, message.Timestamp)
	if err != nil {
		return models.Message{}, unavailable("insert message", err)
	}

	return message, nil
}

// ListBetween returns the conversation between two users, oldest first.
func (r *PostgresMessageRepository) ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, sender_id, receiver_id, text, timestamp
        FROM messages
        WHERE (sender_id = $1 AND receiver_id = $2)
           OR (sender_id = $2 AND receiver_id = $1)
        ORDER BY timestamp
    `, userID, otherID)
	if err != nil {
		return nil, unavailable("query messages", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(&message.ID, &message.SenderID, &message.ReceiverID, &message.Text, &message.Timestamp); err != nil {
			return nil, unavailable("scan message", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate messages", err)
	}

	return messages, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendRepository = (*PostgresFriendRepository)(nil)
var _ MessageRepository = (*PostgresMessageRepository)(nil)
