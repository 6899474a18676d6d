//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package contract

import (
	"chat-rooms/domain"
	"context"
	"time"
)

// IStore is the persistence collaborator of the chat engine.
// Every method is its own transaction and is safe for concurrent use.
// Failures other than the domain sentinels are wrapped in errors.ErrPersistence.
type IStore interface {
	// AddUser creates the account and its zeroed leaderboard row.
	// Returns errors.ErrUserAlreadyExists when the username is taken.
	AddUser(ctx context.Context, username, passwordHash string) (domain.UserID, error)
	// GetUser loads the account used to verify credentials.
	// Returns errors.ErrUserNotFound for an unknown username.
	GetUser(ctx context.Context, username string) (domain.User, error)
	GetUsernameByID(ctx context.Context, id domain.UserID) (string, error)
	UpdateUserActiveTime(ctx context.Context, id domain.UserID, at time.Time) error

	// CreateRoom returns errors.ErrRoomAlreadyExists when the name is taken.
	CreateRoom(ctx context.Context, name string, isPrivate bool, createdBy domain.UserID) (domain.RoomID, error)
	// GetRoomDetails returns errors.ErrRoomNotFound for an unknown name.
	GetRoomDetails(ctx context.Context, name string) (domain.RoomDetails, error)
	// GetAllRooms lists every room in creation order.
	GetAllRooms(ctx context.Context) ([]domain.RoomDetails, error)
	// GetRoomStats returns the durable number of messages posted in the room.
	GetRoomStats(ctx context.Context, roomID domain.RoomID) (int, error)

	// SaveMessage appends the message and bumps the author's leaderboard row.
	SaveMessage(ctx context.Context, message domain.Message) error
	// GetMessageHistory returns at most limit messages, oldest first, newest last.
	GetMessageHistory(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error)
	// GetLeaderboard ranks users by message count then recency.
	GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}
