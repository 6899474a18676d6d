package protocol

import (
	"bytes"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"encoding/json"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type PushType string

const (
	TypePrompt      PushType = "prompt"
	TypeInfo        PushType = "info"
	TypeChatMessage PushType = "chat_message"
)

// ServerSender labels notifications emitted by the server itself.
const ServerSender = "SERVER"

// Encode renders v as exactly one frame: a JSON object followed by a single
// delimiter, with no delimiter inside the payload.
func Encode(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(body, Delimiter) >= 0 {
		return nil, newProtocolError(errors.ErrMalformedFrame, body)
	}
	return append(body, Delimiter), nil
}

type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func Success(message string) Result {
	return Result{Status: StatusSuccess, Message: message}
}

func Failure(message string) Result {
	return Result{Status: StatusError, Message: message}
}

type Push struct {
	Type    PushType `json:"type"`
	Message string   `json:"message"`
}

func Prompt(message string) Push {
	return Push{Type: TypePrompt, Message: message}
}

func Info(message string) Push {
	return Push{Type: TypeInfo, Message: message}
}

type ChatMessage struct {
	Type      PushType `json:"type"`
	Sender    string   `json:"sender"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
}

func NewChatMessage(sender, content string, at time.Time) ChatMessage {
	return ChatMessage{Type: TypeChatMessage, Sender: sender, Content: content, Timestamp: FormatTimestamp(at)}
}

// FormatTimestamp renders at as ISO-8601 in UTC.
func FormatTimestamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339Nano)
}

type LoginResult struct {
	Result
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Token    string        `json:"token,omitempty"`
}

type HistoryEntry struct {
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func ToHistory(messages []domain.Message) []HistoryEntry {
	return lo.Map(messages, func(m domain.Message, _ int) HistoryEntry {
		return HistoryEntry{Username: m.Username, Content: m.Content, Timestamp: FormatTimestamp(m.At)}
	})
}

type Stats struct {
	TotalUsers    int `json:"total_users"`
	TotalMessages int `json:"total_messages"`
}

func ToStats(stats domain.RoomStats) Stats {
	return Stats{TotalUsers: stats.ActiveMembers, TotalMessages: stats.TotalMessages}
}

type JoinResult struct {
	Result
	RoomID            domain.RoomID  `json:"room_id"`
	RoomName          string         `json:"room_name"`
	History           []HistoryEntry `json:"history"`
	RoomStats         Stats          `json:"room_stats"`
	ActiveUsersInRoom []string       `json:"active_users_in_room"`
}

type RoomEntry struct {
	ID        domain.RoomID `json:"id"`
	Name      string        `json:"name"`
	IsPrivate bool          `json:"is_private"`
}

func ToRooms(rooms []domain.RoomDetails) []RoomEntry {
	return lo.Map(rooms, func(r domain.RoomDetails, _ int) RoomEntry {
		return RoomEntry{ID: r.ID, Name: r.Name, IsPrivate: r.IsPrivate}
	})
}

type RoomsResult struct {
	Result
	Rooms []RoomEntry `json:"rooms"`
}

type StatsResult struct {
	Result
	RoomStats   Stats    `json:"room_stats"`
	ActiveUsers []string `json:"active_users"`
}

type LeaderboardEntry struct {
	Username     string `json:"username"`
	MessageCount int    `json:"message_count"`
	LastActive   string `json:"last_active"`
}

func ToLeaderboard(entries []domain.LeaderboardEntry) []LeaderboardEntry {
	return lo.Map(entries, func(e domain.LeaderboardEntry, _ int) LeaderboardEntry {
		return LeaderboardEntry{Username: e.Username, MessageCount: e.MessageCount, LastActive: FormatTimestamp(e.LastActive)}
	})
}

type LeaderboardResult struct {
	Result
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type SearchResult struct {
	Result
	Query   string         `json:"query"`
	Results []HistoryEntry `json:"results"`
}

// Frame is the union of every field a server frame may carry.
// Clients decode into it and switch on Type and Status.
type Frame struct {
	Type              PushType           `json:"type,omitempty"`
	Status            Status             `json:"status,omitempty"`
	Message           string             `json:"message,omitempty"`
	Sender            string             `json:"sender,omitempty"`
	Content           string             `json:"content,omitempty"`
	Timestamp         string             `json:"timestamp,omitempty"`
	UserID            *domain.UserID     `json:"user_id,omitempty"`
	Username          string             `json:"username,omitempty"`
	Token             string             `json:"token,omitempty"`
	RoomID            *domain.RoomID     `json:"room_id,omitempty"`
	RoomName          string             `json:"room_name,omitempty"`
	History           []HistoryEntry     `json:"history,omitempty"`
	RoomStats         *Stats             `json:"room_stats,omitempty"`
	ActiveUsersInRoom []string           `json:"active_users_in_room,omitempty"`
	ActiveUsers       []string           `json:"active_users,omitempty"`
	Rooms             []RoomEntry        `json:"rooms,omitempty"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard,omitempty"`
	Query             string             `json:"query,omitempty"`
	Results           []HistoryEntry     `json:"results,omitempty"`
}

func DecodeFrame(frame []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return Frame{}, newProtocolError(errors.ErrMalformedFrame, frame)
	}
	return f, nil
}
