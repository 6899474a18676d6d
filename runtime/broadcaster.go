package runtime

import (
	"chat-rooms/protocol"
	"fmt"
	"log/slog"
	"time"
)

// Broadcaster delivers chat frames to every member of a room while holding the
// room's lock, which gives each room one total order of deliveries.
//
// A member whose delivery fails is removed on the spot, inside the lock. Its
// departure notice and the closing of its connection happen in settle, once the
// lock is released, so eviction never re-enters the lock it was detected under.
type Broadcaster struct {
	log *slog.Logger
	now func() time.Time
}

func NewBroadcaster(log *slog.Logger) *Broadcaster {
	return &Broadcaster{log: log, now: time.Now}
}

// Broadcast sends a chat_message from sender to every member of room except exclude.
func (b *Broadcaster) Broadcast(room *Room, sender, content string, exclude *Session) {
	message := protocol.NewChatMessage(sender, content, b.now())
	room.mu.Lock()
	evicted := b.deliverLocked(room, message, exclude)
	room.mu.Unlock()
	b.settle(room, evicted)
}

// deliverLocked must be called with room.mu held. It returns the members it evicted.
func (b *Broadcaster) deliverLocked(room *Room, message protocol.ChatMessage, exclude *Session) []*Session {
	frame, err := protocol.Encode(message)
	if err != nil {
		b.log.Error("Unable to encode broadcast", "room_id", room.ID, "error", err)
		return nil
	}

	var failed []*Session
	for _, member := range room.members {
		if member == exclude {
			continue
		}
		if err := member.Send(frame); err != nil {
			b.log.Warn("Delivery failed, evicting member",
				"room_id", room.ID, "user_id", member.UserID, "error", err)
			failed = append(failed, member)
		}
	}
	for _, member := range failed {
		room.removeLocked(member)
	}
	return failed
}

// settle announces the departure of evicted members and closes their connections.
// Announcing may evict further members, which are settled in turn.
func (b *Broadcaster) settle(room *Room, evicted []*Session) {
	for len(evicted) > 0 {
		member := evicted[0]
		evicted = evicted[1:]

		notice := protocol.NewChatMessage(protocol.ServerSender, fmt.Sprintf("%s has left the room.", member.Username), b.now())
		room.mu.Lock()
		more := b.deliverLocked(room, notice, nil)
		room.mu.Unlock()
		evicted = append(evicted, more...)

		if err := member.Close(); err != nil {
			b.log.Debug("Closing evicted connection", "user_id", member.UserID, "error", err)
		}
	}
}
