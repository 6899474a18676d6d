package runtime

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/protocol"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// messagePrecision is the finest timestamp every store keeps (Postgres stores
// microseconds), so a message echoed live and read back from history match.
const messagePrecision = time.Microsecond

// JoinResult is what a session sees when it enters a room.
type JoinResult struct {
	Room        domain.RoomDetails
	History     []domain.Message
	Stats       domain.RoomStats
	ActiveUsers []string
}

// RoomRegistry owns every live Room. Its own lock only guards the room
// directory; membership is guarded by each Room's lock.
type RoomRegistry struct {
	mu     sync.RWMutex
	byID   map[domain.RoomID]*Room
	byName map[string]*Room

	sessions     *SessionRegistry
	broadcaster  *Broadcaster
	store        contract.IStore
	log          *slog.Logger
	historyLimit int
	now          func() time.Time
}

func NewRoomRegistry(store contract.IStore, sessions *SessionRegistry, broadcaster *Broadcaster,
	log *slog.Logger, historyLimit int) *RoomRegistry {
	return &RoomRegistry{
		byID:         make(map[domain.RoomID]*Room),
		byName:       make(map[string]*Room),
		sessions:     sessions,
		broadcaster:  broadcaster,
		store:        store,
		log:          log,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Hydrate loads every persisted room with its durable message count.
func (r *RoomRegistry) Hydrate(ctx context.Context) error {
	rooms, err := r.store.GetAllRooms(ctx)
	if err != nil {
		return err
	}
	for _, details := range rooms {
		count, err := r.store.GetRoomStats(ctx, details.ID)
		if err != nil {
			return err
		}
		r.register(details, count)
	}
	r.log.Info("Rooms hydrated", "count", len(rooms))
	return nil
}

// register adds a room to the directory unless one with that id is already known.
func (r *RoomRegistry) register(details domain.RoomDetails, messageCount int) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.byID[details.ID]; ok {
		return room
	}
	room := newRoom(details, messageCount)
	r.byID[room.ID] = room
	r.byName[room.Name] = room
	return room
}

// CreateRoom persists the room, first writer wins on the name, then registers it empty.
func (r *RoomRegistry) CreateRoom(ctx context.Context, name string, isPrivate bool, creator domain.UserID) (domain.RoomID, error) {
	id, err := r.store.CreateRoom(ctx, name, isPrivate, creator)
	if err != nil {
		return 0, err
	}
	r.register(domain.RoomDetails{ID: id, Name: name, IsPrivate: isPrivate}, 0)
	r.log.Info("Room created", "room_id", id, "name", name, "private", isPrivate, "user_id", creator)
	return id, nil
}

// lookup finds a room by name, falling back to the store for rooms this
// registry has not seen yet.
func (r *RoomRegistry) lookup(ctx context.Context, name string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return room, nil
	}
	details, err := r.store.GetRoomDetails(ctx, name)
	if err != nil {
		return nil, err
	}
	count, err := r.store.GetRoomStats(ctx, details.ID)
	if err != nil {
		return nil, err
	}
	return r.register(details, count), nil
}

// JoinRoom moves session into the named room, leaving its current room first.
// History, stats and the member list are read under the destination room's lock,
// so the history ends exactly where the live messages pushed afterwards begin.
func (r *RoomRegistry) JoinRoom(ctx context.Context, session *Session, name string) (JoinResult, error) {
	room, err := r.lookup(ctx, name)
	if err != nil {
		return JoinResult{}, err
	}
	r.LeaveRoom(session)

	room.mu.Lock()
	history, err := r.store.GetMessageHistory(ctx, room.ID, r.historyLimit)
	if err != nil {
		room.mu.Unlock()
		return JoinResult{}, err
	}
	room.addLocked(session)
	notice := protocol.NewChatMessage(protocol.ServerSender, fmt.Sprintf("%s has joined the room.", session.Username), r.now())
	evicted := r.broadcaster.deliverLocked(room, notice, session)
	result := JoinResult{
		Room:        room.Details(),
		History:     history,
		ActiveUsers: room.usernamesLocked(),
		Stats:       domain.RoomStats{ActiveMembers: len(room.members), TotalMessages: room.messageCount},
	}
	room.mu.Unlock()
	r.broadcaster.settle(room, evicted)

	if err := r.store.UpdateUserActiveTime(ctx, session.UserID, r.now()); err != nil {
		r.log.Error("Unable to refresh activity", "user_id", session.UserID, "error", err)
	}
	r.log.Debug("Room joined", "room_id", room.ID, "user_id", session.UserID)
	return result, nil
}

// LeaveRoom removes session from its room and tells the remaining members.
// It reports false, with no broadcast, when the session occupied no room.
func (r *RoomRegistry) LeaveRoom(session *Session) (domain.RoomDetails, bool) {
	room := session.currentRoom()
	if room == nil {
		return domain.RoomDetails{}, false
	}

	room.mu.Lock()
	if !room.removeLocked(session) {
		room.mu.Unlock()
		return domain.RoomDetails{}, false
	}
	notice := protocol.NewChatMessage(protocol.ServerSender, fmt.Sprintf("%s has left the room.", session.Username), r.now())
	evicted := r.broadcaster.deliverLocked(room, notice, nil)
	room.mu.Unlock()
	r.broadcaster.settle(room, evicted)

	r.log.Debug("Room left", "room_id", room.ID, "user_id", session.UserID)
	return room.Details(), true
}

// DisconnectUser leaves the session's room, if any, and forgets the session.
// Calling it again for the same session does nothing.
func (r *RoomRegistry) DisconnectUser(session *Session) {
	r.LeaveRoom(session)
	if r.sessions.Remove(session) {
		r.log.Info("Session closed", "user_id", session.UserID, "session_id", session.ID)
	}
}

// SendMessage persists the message and delivers it to every member, sender included.
// Persisting, counting and delivering share one critical section, so members see
// messages in the order they were stored.
func (r *RoomRegistry) SendMessage(ctx context.Context, session *Session, content string) (domain.Message, error) {
	room := session.currentRoom()
	if room == nil {
		return domain.Message{}, errors.ErrNotInRoom
	}
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	room.mu.Lock()
	if !room.hasLocked(session) {
		room.mu.Unlock()
		return domain.Message{}, errors.ErrNotInRoom
	}
	message := domain.Message{
		ID:       uuid.New(),
		RoomID:   room.ID,
		UserID:   session.UserID,
		Username: session.Username,
		Content:  content,
		At:       r.now().UTC().Truncate(messagePrecision),
	}
	if err := r.store.SaveMessage(ctx, message); err != nil {
		room.mu.Unlock()
		return domain.Message{}, err
	}
	room.messageCount++
	evicted := r.broadcaster.deliverLocked(room, protocol.NewChatMessage(message.Username, message.Content, message.At), nil)
	room.mu.Unlock()
	r.broadcaster.settle(room, evicted)
	return message, nil
}

// RoomStats reports the live member count of the session's room and its durable
// message count.
func (r *RoomRegistry) RoomStats(ctx context.Context, session *Session) (domain.RoomStats, []string, error) {
	room := session.currentRoom()
	if room == nil {
		return domain.RoomStats{}, nil, errors.ErrNotInRoom
	}
	members := room.Members()
	total, err := r.store.GetRoomStats(ctx, room.ID)
	if err != nil {
		return domain.RoomStats{}, nil, err
	}
	return domain.RoomStats{ActiveMembers: len(members), TotalMessages: total}, members, nil
}

// ListRooms returns every known room ordered by id, private ones included.
func (r *RoomRegistry) ListRooms() []domain.RoomDetails {
	r.mu.RLock()
	rooms := make([]domain.RoomDetails, 0, len(r.byID))
	for _, room := range r.byID {
		rooms = append(rooms, room.Details())
	}
	r.mu.RUnlock()
	slices.SortFunc(rooms, func(a, b domain.RoomDetails) int { return cmp.Compare(a.ID, b.ID) })
	return rooms
}

// Room returns the live room with the given id.
func (r *RoomRegistry) Room(id domain.RoomID) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byID[id]
	return room, ok
}

func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Broadcast sends a notice to every member of the room except exclude.
func (r *RoomRegistry) Broadcast(id domain.RoomID, sender, content string, exclude *Session) error {
	room, ok := r.Room(id)
	if !ok {
		return errors.ErrRoomNotFound
	}
	r.broadcaster.Broadcast(room, sender, content, exclude)
	return nil
}
