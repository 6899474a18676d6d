// Package postgres implements contract.IStore on PostgreSQL through a pgx pool.
package postgres

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username VARCHAR(50) UNIQUE NOT NULL,
    password_hash VARCHAR(128) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS rooms (
    id SERIAL PRIMARY KEY,
    name VARCHAR(50) UNIQUE NOT NULL,
    is_private BOOLEAN NOT NULL DEFAULT FALSE,
    created_by_user_id INTEGER REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS messages (
    id SERIAL PRIMARY KEY,
    uid UUID UNIQUE NOT NULL,
    room_id INTEGER REFERENCES rooms(id),
    user_id INTEGER REFERENCES users(id),
    content TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS messages_room_timestamp ON messages (room_id, timestamp DESC);
CREATE TABLE IF NOT EXISTS leaderboard (
    user_id INTEGER PRIMARY KEY REFERENCES users(id),
    message_count INTEGER NOT NULL DEFAULT 0,
    last_active TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects the pool and creates the tables when missing.
func Open(ctx context.Context, url string, log *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", errors.ErrPersistence, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", errors.ErrPersistence, err)
	}
	s := &Store{pool: pool, log: log}
	if err = s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("Postgres store ready")
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: migrate: %v", errors.ErrPersistence, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// inTx runs fn in a transaction committed only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, fn)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func persistence(op string, err error) error {
	if err == nil || errors.KindOf(err) != errors.KindInternal {
		return err
	}
	return fmt.Errorf("%w: %s: %v", errors.ErrPersistence, op, err)
}

func (s *Store) AddUser(ctx context.Context, username, passwordHash string) (domain.UserID, error) {
	var id int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
			username, passwordHash).Scan(&id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO leaderboard (user_id) VALUES ($1)`, id)
		return err
	})
	if isUniqueViolation(err) {
		return 0, errors.ErrUserAlreadyExists
	}
	if err != nil {
		return 0, persistence("add user", err)
	}
	return domain.UserID(id), nil
}

func (s *Store) GetUser(ctx context.Context, username string) (domain.User, error) {
	var user domain.User
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username).Scan(&id, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, persistence("get user", err)
	}
	user.ID = domain.UserID(id)
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (s *Store) GetUsernameByID(ctx context.Context, id domain.UserID) (string, error) {
	var username string
	err := s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, int64(id)).Scan(&username)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return "", errors.ErrUserNotFound
	}
	if err != nil {
		return "", persistence("get username", err)
	}
	return username, nil
}

func (s *Store) UpdateUserActiveTime(ctx context.Context, id domain.UserID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE leaderboard SET last_active = $2 WHERE user_id = $1`, int64(id), at)
	if err != nil {
		return persistence("update active time", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateRoom(ctx context.Context, name string, isPrivate bool, createdBy domain.UserID) (domain.RoomID, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO rooms (name, is_private, created_by_user_id) VALUES ($1, $2, $3) RETURNING id`,
		name, isPrivate, int64(createdBy)).Scan(&id)
	if isUniqueViolation(err) {
		return 0, errors.ErrRoomAlreadyExists
	}
	if err != nil {
		return 0, persistence("create room", err)
	}
	return domain.RoomID(id), nil
}

func (s *Store) GetRoomDetails(ctx context.Context, name string) (domain.RoomDetails, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, is_private FROM rooms WHERE name = $1`, name)
	if err != nil {
		return domain.RoomDetails{}, persistence("get room", err)
	}
	room, err := pgx.CollectExactlyOneRow(rows, scanRoom)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.RoomDetails{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomDetails{}, persistence("get room", err)
	}
	return room, nil
}

func (s *Store) GetAllRooms(ctx context.Context) ([]domain.RoomDetails, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, is_private FROM rooms ORDER BY id`)
	if err != nil {
		return nil, persistence("get rooms", err)
	}
	rooms, err := pgx.CollectRows(rows, scanRoom)
	if err != nil {
		return nil, persistence("get rooms", err)
	}
	return rooms, nil
}

func (s *Store) GetRoomStats(ctx context.Context, roomID domain.RoomID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE room_id = $1`, int64(roomID)).Scan(&count)
	if err != nil {
		return 0, persistence("get room stats", err)
	}
	return count, nil
}

func (s *Store) SaveMessage(ctx context.Context, m domain.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO messages (uid, room_id, user_id, content, timestamp) VALUES ($1, $2, $3, $4, $5)`,
			m.ID, int64(m.RoomID), int64(m.UserID), m.Content, m.At)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE leaderboard SET message_count = message_count + 1, last_active = $2 WHERE user_id = $1`,
			int64(m.UserID), m.At)
		return err
	})
	return persistence("save message", err)
}

func (s *Store) GetMessageHistory(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uid, room_id, user_id, username, content, timestamp FROM (
			SELECT m.id, m.uid, m.room_id, m.user_id, u.username, m.content, m.timestamp
			FROM messages m JOIN users u ON m.user_id = u.id
			WHERE m.room_id = $1
			ORDER BY m.timestamp DESC, m.id DESC
			LIMIT $2
		) recent ORDER BY timestamp, id`, int64(roomID), sqlLimit(limit))
	if err != nil {
		return nil, persistence("get history", err)
	}
	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var m domain.Message
		var room, user int64
		if err := row.Scan(&m.ID, &room, &user, &m.Username, &m.Content, &m.At); err != nil {
			return domain.Message{}, err
		}
		m.RoomID, m.UserID, m.At = domain.RoomID(room), domain.UserID(user), m.At.UTC()
		return m, nil
	})
	if err != nil {
		return nil, persistence("get history", err)
	}
	return messages, nil
}

func (s *Store) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.username, l.message_count, l.last_active
		FROM leaderboard l JOIN users u ON l.user_id = u.id
		ORDER BY l.message_count DESC, l.last_active DESC
		LIMIT $1`, sqlLimit(limit))
	if err != nil {
		return nil, persistence("get leaderboard", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LeaderboardEntry, error) {
		var e domain.LeaderboardEntry
		err := row.Scan(&e.Username, &e.MessageCount, &e.LastActive)
		e.LastActive = e.LastActive.UTC()
		return e, err
	})
	if err != nil {
		return nil, persistence("get leaderboard", err)
	}
	return entries, nil
}

// sqlLimit maps a non-positive limit to NULL, which Postgres reads as no limit.
func sqlLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func scanRoom(row pgx.CollectableRow) (domain.RoomDetails, error) {
	var room domain.RoomDetails
	var id int64
	err := row.Scan(&id, &room.Name, &room.IsPrivate)
	room.ID = domain.RoomID(id)
	return room, err
}
