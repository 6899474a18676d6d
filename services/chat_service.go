package services

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/runtime"
	"context"
	"log/slog"
)

type IChatService interface {
	CreateRoom(ctx context.Context, session *runtime.Session, name string, isPrivate bool) (domain.RoomID, error)
	JoinRoom(ctx context.Context, session *runtime.Session, name string) (runtime.JoinResult, error)
	LeaveRoom(session *runtime.Session) (domain.RoomDetails, bool)
	SendMessage(ctx context.Context, session *runtime.Session, content string) error
	RoomStats(ctx context.Context, session *runtime.Session) (domain.RoomStats, []string, error)
	ListRooms() []domain.RoomDetails
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	Search(ctx context.Context, session *runtime.Session, query string) ([]domain.Message, error)
	Disconnect(session *runtime.Session)
}

// ChatService puts moderation and search around the room registry.
// A nil moderator or index disables that feature.
type ChatService struct {
	rooms            *runtime.RoomRegistry
	store            contract.IStore
	moderator        contract.IModerator
	index            contract.ISearchIndex
	log              *slog.Logger
	leaderboardLimit int
	searchLimit      int
}

func NewChatService(rooms *runtime.RoomRegistry, store contract.IStore, moderator contract.IModerator,
	index contract.ISearchIndex, log *slog.Logger, leaderboardLimit, searchLimit int) *ChatService {
	return &ChatService{
		rooms:            rooms,
		store:            store,
		moderator:        moderator,
		index:            index,
		log:              log,
		leaderboardLimit: leaderboardLimit,
		searchLimit:      searchLimit,
	}
}

func (s *ChatService) CreateRoom(ctx context.Context, session *runtime.Session, name string, isPrivate bool) (domain.RoomID, error) {
	return s.rooms.CreateRoom(ctx, name, isPrivate, session.UserID)
}

func (s *ChatService) JoinRoom(ctx context.Context, session *runtime.Session, name string) (runtime.JoinResult, error) {
	return s.rooms.JoinRoom(ctx, session, name)
}

func (s *ChatService) LeaveRoom(session *runtime.Session) (domain.RoomDetails, bool) {
	return s.rooms.LeaveRoom(session)
}

// SendMessage censors content, hands it to the room and indexes what was stored.
// Indexing failures are logged only: the message is already delivered.
func (s *ChatService) SendMessage(ctx context.Context, session *runtime.Session, content string) error {
	if s.moderator != nil {
		verdict := s.moderator.Review(content)
		if len(verdict.CensoredWords) > 0 {
			s.log.Warn("Message censored", "user_id", session.UserID, "words", len(verdict.CensoredWords), "lang", verdict.Lang)
		}
		content = verdict.Content
	}
	message, err := s.rooms.SendMessage(ctx, session, content)
	if err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Index(ctx, message); err != nil {
			s.log.Error("Unable to index message", "message_id", message.ID, "error", err)
		}
	}
	return nil
}

func (s *ChatService) RoomStats(ctx context.Context, session *runtime.Session) (domain.RoomStats, []string, error) {
	return s.rooms.RoomStats(ctx, session)
}

func (s *ChatService) ListRooms() []domain.RoomDetails {
	return s.rooms.ListRooms()
}

func (s *ChatService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.store.GetLeaderboard(ctx, s.leaderboardLimit)
}

// Search looks for query in the session's current room, newest matches first.
func (s *ChatService) Search(ctx context.Context, session *runtime.Session, query string) ([]domain.Message, error) {
	roomID, ok := session.CurrentRoom()
	if !ok {
		return nil, errors.ErrNotInRoom
	}
	if s.index == nil {
		return nil, nil
	}
	return s.index.Search(ctx, roomID, query, s.searchLimit)
}

func (s *ChatService) Disconnect(session *runtime.Session) {
	s.rooms.DisconnectUser(session)
}
