package runtime

import (
	"chat-rooms/domain"
	"slices"
	"sync"
)

// Room is the live state of a chat room. members and messageCount are only
// touched with mu held, and a member's Session.room points back to the Room
// under that same lock.
type Room struct {
	ID        domain.RoomID
	Name      string
	IsPrivate bool

	mu           sync.Mutex
	members      []*Session
	messageCount int
}

func newRoom(details domain.RoomDetails, messageCount int) *Room {
	return &Room{ID: details.ID, Name: details.Name, IsPrivate: details.IsPrivate, messageCount: messageCount}
}

func (r *Room) Details() domain.RoomDetails {
	return domain.RoomDetails{ID: r.ID, Name: r.Name, IsPrivate: r.IsPrivate}
}

// Members returns the usernames of the current members in join order.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usernamesLocked()
}

func (r *Room) addLocked(s *Session) {
	if !slices.Contains(r.members, s) {
		r.members = append(r.members, s)
	}
	s.setRoom(r)
}

// removeLocked drops s from the member list and clears its room pointer.
// It reports false when s was not a member.
func (r *Room) removeLocked(s *Session) bool {
	i := slices.Index(r.members, s)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	if s.currentRoom() == r {
		s.setRoom(nil)
	}
	return true
}

func (r *Room) hasLocked(s *Session) bool {
	return slices.Contains(r.members, s)
}

func (r *Room) usernamesLocked() []string {
	names := make([]string, len(r.members))
	for i, m := range r.members {
		names[i] = m.Username
	}
	return names
}
