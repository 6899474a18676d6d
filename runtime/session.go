package runtime

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session is the identity of one authenticated connection and the room it occupies.
//
// Lock order: a Room's mu is always taken before a Session's mu, and writeMu is a
// leaf that may be taken under either.
type Session struct {
	ID       uuid.UUID
	UserID   domain.UserID
	Username string

	conn      contract.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	mu   sync.Mutex
	room *Room
}

func NewSession(user domain.User, conn contract.Conn) *Session {
	return &Session{ID: uuid.New(), UserID: user.ID, Username: user.Username, conn: conn}
}

// Send writes one encoded frame. Frames from concurrent senders never interleave.
func (s *Session) Send(frame []byte) error {
	if s.closed.Load() {
		return errors.ErrConnectionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteFrame(frame)
}

// Close shuts the underlying connection once. The connection's reader then fails,
// which is how an evicted session's own handler learns it must clean up.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

// CurrentRoom returns the id of the occupied room, if any.
func (s *Session) CurrentRoom() (domain.RoomID, bool) {
	room := s.currentRoom()
	if room == nil {
		return 0, false
	}
	return room.ID, true
}

func (s *Session) currentRoom() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// setRoom must be called with the lock of the room being entered or left.
func (s *Session) setRoom(room *Room) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
}
