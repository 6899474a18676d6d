package runtime

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/mocks"
	"chat-rooms/protocol"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomRegistry_Join_Empty_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice, aliceConn := f.login(t, "alice")
	id := f.createRoom(t, "general")

	result, err := f.rooms.JoinRoom(context.Background(), alice, "general")

	req.NoError(err)
	req.Equal(domain.RoomDetails{ID: id, Name: "general"}, result.Room)
	req.Empty(result.History)
	req.Equal([]string{"alice"}, result.ActiveUsers)
	req.Equal(domain.RoomStats{ActiveMembers: 1, TotalMessages: 0}, result.Stats)
	current, ok := alice.CurrentRoom()
	req.True(ok)
	req.Equal(id, current)
	// The joiner is not told about their own arrival
	req.Empty(aliceConn.pushes(t))
}

func TestRoomRegistry_Join_Unknown_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice, _ := f.login(t, "alice")

	_, err := f.rooms.JoinRoom(context.Background(), alice, "nowhere")

	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, ok := alice.CurrentRoom()
	req.False(ok)
}

func TestRoomRegistry_Create_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.createRoom(t, "general")

	_, err := f.rooms.CreateRoom(context.Background(), "general", true, 1)

	req.ErrorIs(err, errors.ErrRoomAlreadyExists)
	req.Equal(1, f.rooms.Count())
}

func TestRoomRegistry_Join_Notifies_Other_Members(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, aliceConn := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	f.createRoom(t, "general")

	_, err := f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)
	result, err := f.rooms.JoinRoom(ctx, bob, "general")
	req.NoError(err)

	req.Equal([]string{"alice", "bob"}, result.ActiveUsers)
	req.Equal([]string{"SERVER: bob has joined the room."}, aliceConn.contents(t))
	req.Empty(bobConn.pushes(t))
}

func TestRoomRegistry_Join_Leaves_Previous_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	f.createRoom(t, "first")
	second := f.createRoom(t, "second")

	// Given alice and bob share a room
	_, err := f.rooms.JoinRoom(ctx, bob, "first")
	req.NoError(err)
	_, err = f.rooms.JoinRoom(ctx, alice, "first")
	req.NoError(err)

	// When alice moves to another room
	_, err = f.rooms.JoinRoom(ctx, alice, "second")
	req.NoError(err)

	// Then bob sees her leave and only the new room lists her
	req.Equal([]string{"SERVER: alice has joined the room.", "SERVER: alice has left the room."}, bobConn.contents(t))
	firstRoom, _ := f.rooms.lookup(ctx, "first")
	secondRoom, _ := f.rooms.lookup(ctx, "second")
	req.Equal([]string{"bob"}, firstRoom.Members())
	req.Equal([]string{"alice"}, secondRoom.Members())
	current, _ := alice.CurrentRoom()
	req.Equal(second, current)
}

func TestRoomRegistry_SendMessage_Echoes_And_Is_In_History(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, aliceConn := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	f.createRoom(t, "general")
	_, err := f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)

	// When alice talks alone in the room
	message, err := f.rooms.SendMessage(ctx, alice, "hi")
	req.NoError(err)

	// Then she receives her own message
	pushes := aliceConn.pushes(t)
	req.Len(pushes, 1)
	req.Equal("alice", pushes[0].Sender)
	req.Equal("hi", pushes[0].Content)

	// When bob joins afterwards
	result, err := f.rooms.JoinRoom(ctx, bob, "general")
	req.NoError(err)

	// Then the history carries the message with its original sender and timestamp
	req.Len(result.History, 1)
	req.Equal("alice", result.History[0].Username)
	req.Equal("hi", result.History[0].Content)
	req.True(message.At.Equal(result.History[0].At))
	req.Equal(pushes[0].Timestamp, message.At.UTC().Format(time.RFC3339Nano))
	req.Equal(1, result.Stats.TotalMessages)
	req.Equal([]string{"alice: hi", "SERVER: bob has joined the room."}, aliceConn.contents(t))
	req.Empty(bobConn.pushes(t))
}

func TestRoomRegistry_SendMessage_Timestamp_Fits_Every_Store(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, aliceConn := f.login(t, "alice")
	bob, _ := f.login(t, "bob")
	f.createRoom(t, "general")
	_, err := f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)

	// Given a clock with nanosecond digits
	f.rooms.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC) }

	// When alice sends a message
	message, err := f.rooms.SendMessage(ctx, alice, "hi")
	req.NoError(err)

	// Then the message is stamped to the microsecond, live and in history alike
	req.Equal(123456000, message.At.Nanosecond())
	req.Equal("2026-03-01T12:00:00.123456Z", aliceConn.pushes(t)[0].Timestamp)
	result, err := f.rooms.JoinRoom(ctx, bob, "general")
	req.NoError(err)
	req.Equal("2026-03-01T12:00:00.123456Z", protocol.FormatTimestamp(result.History[0].At))
}

func TestRoomRegistry_Broadcast_Notice(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, aliceConn := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	id := f.createRoom(t, "general")
	_, err := f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)
	_, err = f.rooms.JoinRoom(ctx, bob, "general")
	req.NoError(err)

	// When the server announces something to the room
	req.NoError(f.rooms.Broadcast(id, protocol.ServerSender, "maintenance", nil))

	// Then every member receives it after what they already saw
	req.Equal([]string{"SERVER: bob has joined the room.", "SERVER: maintenance"}, aliceConn.contents(t))
	req.Equal([]string{"SERVER: maintenance"}, bobConn.contents(t))

	// An unknown room is reported
	req.ErrorIs(f.rooms.Broadcast(domain.RoomID(404), protocol.ServerSender, "maintenance", nil), errors.ErrRoomNotFound)
}

func TestRoomRegistry_SendMessage_Requires_Room_And_Content(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.login(t, "alice")

	_, err := f.rooms.SendMessage(ctx, alice, "hi")
	req.ErrorIs(err, errors.ErrNotInRoom)

	f.createRoom(t, "general")
	_, err = f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)

	_, err = f.rooms.SendMessage(ctx, alice, "   ")
	req.ErrorIs(err, errors.ErrEmptyMessage)
}

func TestRoomRegistry_Leave_Then_Disconnect_Announces_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	f.createRoom(t, "general")
	_, err := f.rooms.JoinRoom(ctx, bob, "general")
	req.NoError(err)
	_, err = f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)

	details, left := f.rooms.LeaveRoom(alice)
	req.True(left)
	req.Equal("general", details.Name)
	_, left = f.rooms.LeaveRoom(alice)
	req.False(left)
	f.rooms.DisconnectUser(alice)
	f.rooms.DisconnectUser(alice)

	req.Equal([]string{"SERVER: alice has joined the room.", "SERVER: alice has left the room."}, bobConn.contents(t))
	_, ok := f.sessions.Get(alice.UserID)
	req.False(ok)
}

func TestRoomRegistry_Disconnect_Leaves_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	f.createRoom(t, "general")
	_, err := f.rooms.JoinRoom(ctx, bob, "general")
	req.NoError(err)
	_, err = f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)

	f.rooms.DisconnectUser(alice)

	req.Equal([]string{"SERVER: alice has joined the room.", "SERVER: alice has left the room."}, bobConn.contents(t))
	room, _ := f.rooms.lookup(ctx, "general")
	req.Equal([]string{"bob"}, room.Members())
	req.Equal(1, f.sessions.Count())
}

func TestBroadcaster_Evicts_Failed_Member(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, aliceConn := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	carol, carolConn := f.login(t, "carol")
	f.createRoom(t, "general")
	for _, s := range []*Session{alice, bob, carol} {
		_, err := f.rooms.JoinRoom(ctx, s, "general")
		req.NoError(err)
	}

	// Given bob's connection is broken
	bobConn.breakConn()

	// When alice sends a message
	_, err := f.rooms.SendMessage(ctx, alice, "hello")
	req.NoError(err)

	// Then the others still get it, followed by a single departure notice for bob
	want := []string{"alice: hello", "SERVER: bob has left the room."}
	aliceSeen := []string{"SERVER: bob has joined the room.", "SERVER: carol has joined the room.", "alice: hello", "SERVER: bob has left the room."}
	req.Equal(aliceSeen, aliceConn.contents(t))
	req.Equal(want, carolConn.contents(t))

	// And bob is out of the room with his connection closed
	room, _ := f.rooms.lookup(ctx, "general")
	req.Equal([]string{"alice", "carol"}, room.Members())
	_, inRoom := bob.CurrentRoom()
	req.False(inRoom)
	req.True(bobConn.isClosed())

	// When bob's handler cleans up, nobody is told twice
	f.rooms.DisconnectUser(bob)
	req.Equal(aliceSeen, aliceConn.contents(t))
	req.Equal(want, carolConn.contents(t))
}

func TestRoomRegistry_SendMessage_Persistence_Failure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIStore(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sessions := NewSessionRegistry()
	rooms := NewRoomRegistry(store, sessions, NewBroadcaster(log), log, 50)
	conn := &fakeConn{}
	alice := NewSession(domain.User{ID: 1, Username: "alice"}, conn)
	req.NoError(sessions.Add(alice))

	// Given a hydrated room
	store.EXPECT().GetAllRooms(gomock.Any()).Return([]domain.RoomDetails{{ID: 3, Name: "general"}}, nil)
	store.EXPECT().GetRoomStats(gomock.Any(), domain.RoomID(3)).Return(7, nil)
	req.NoError(rooms.Hydrate(ctx))

	store.EXPECT().GetMessageHistory(gomock.Any(), domain.RoomID(3), 50).Return(nil, nil)
	store.EXPECT().UpdateUserActiveTime(gomock.Any(), domain.UserID(1), gomock.Any()).Return(nil)
	result, err := rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)
	req.Equal(7, result.Stats.TotalMessages)

	// When the store fails to save
	store.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: disk full", errors.ErrPersistence))
	_, err = rooms.SendMessage(ctx, alice, "hi")

	// Then nothing is delivered nor counted
	req.ErrorIs(err, errors.ErrPersistence)
	req.Empty(conn.pushes(t))
	room, _ := rooms.Room(3)
	room.mu.Lock()
	req.Equal(7, room.messageCount)
	room.mu.Unlock()
}

func TestRoomRegistry_Join_History_Failure_Leaves_No_Membership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIStore(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	rooms := NewRoomRegistry(store, NewSessionRegistry(), NewBroadcaster(log), log, 50)
	alice := NewSession(domain.User{ID: 1, Username: "alice"}, &fakeConn{})

	store.EXPECT().GetRoomDetails(gomock.Any(), "general").Return(domain.RoomDetails{ID: 3, Name: "general"}, nil)
	store.EXPECT().GetRoomStats(gomock.Any(), domain.RoomID(3)).Return(0, nil)
	store.EXPECT().GetMessageHistory(gomock.Any(), domain.RoomID(3), 50).Return(nil, stderrors.New("timeout"))

	_, err := rooms.JoinRoom(ctx, alice, "general")

	req.Error(err)
	_, inRoom := alice.CurrentRoom()
	req.False(inRoom)
	room, ok := rooms.Room(3)
	req.True(ok)
	req.Empty(room.Members())
}

func TestRoomRegistry_RoomStats_And_ListRooms(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.login(t, "alice")

	_, _, err := f.rooms.RoomStats(ctx, alice)
	req.ErrorIs(err, errors.ErrNotInRoom)

	b := f.createRoom(t, "b-room")
	_, err = f.rooms.CreateRoom(ctx, "a-room", true, alice.UserID)
	req.NoError(err)
	_, err = f.rooms.JoinRoom(ctx, alice, "b-room")
	req.NoError(err)
	for range 2 {
		_, err = f.rooms.SendMessage(ctx, alice, "x")
		req.NoError(err)
	}

	stats, members, err := f.rooms.RoomStats(ctx, alice)
	req.NoError(err)
	req.Equal(domain.RoomStats{ActiveMembers: 1, TotalMessages: 2}, stats)
	req.Equal([]string{"alice"}, members)

	rooms := f.rooms.ListRooms()
	req.Len(rooms, 2)
	req.Equal(b, rooms[0].ID)
	req.Equal("a-room", rooms[1].Name)
	req.True(rooms[1].IsPrivate)
}

func TestRoomRegistry_Hydrate_Restores_Counts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.login(t, "alice")
	f.createRoom(t, "general")
	_, err := f.rooms.JoinRoom(ctx, alice, "general")
	req.NoError(err)
	_, err = f.rooms.SendMessage(ctx, alice, "persisted")
	req.NoError(err)

	// When a fresh registry is built over the same store
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	restarted := NewRoomRegistry(f.store, NewSessionRegistry(), NewBroadcaster(log), log, 50)
	req.NoError(restarted.Hydrate(ctx))

	// Then rooms come back empty with their durable message count
	req.Equal(1, restarted.Count())
	bob := NewSession(domain.User{ID: 99, Username: "bob"}, &fakeConn{})
	result, err := restarted.JoinRoom(ctx, bob, "general")
	req.NoError(err)
	req.Equal(1, result.Stats.TotalMessages)
	req.Equal([]string{"bob"}, result.ActiveUsers)
}

func TestRoomRegistry_Concurrent_Joins_Keep_One_Room_Per_Session(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	roomNames := []string{"r0", "r1", "r2"}
	for _, name := range roomNames {
		f.createRoom(t, name)
	}
	const users = 12
	sessions := make([]*Session, users)
	for i := range users {
		sessions[i], _ = f.login(t, fmt.Sprintf("user%d", i))
	}

	// When every session joins and leaves rooms concurrently
	final := make([]string, users)
	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(i), 42))
			for range 30 {
				if rng.IntN(4) == 0 {
					f.rooms.LeaveRoom(s)
					final[i] = ""
					continue
				}
				name := roomNames[rng.IntN(len(roomNames))]
				if _, err := f.rooms.JoinRoom(ctx, s, name); err == nil {
					final[i] = name
				}
			}
		}()
	}
	wg.Wait()

	// Then each room holds exactly the sessions whose last action was joining it
	for _, name := range roomNames {
		room, err := f.rooms.lookup(ctx, name)
		req.NoError(err)
		var want []string
		for i, s := range sessions {
			if final[i] == name {
				want = append(want, s.Username)
			}
		}
		got := room.Members()
		slices.Sort(got)
		slices.Sort(want)
		req.Equal(want, got, name)
	}
	// And each session's room pointer agrees with the membership
	for i, s := range sessions {
		id, ok := s.CurrentRoom()
		req.Equal(final[i] != "", ok)
		if ok {
			room, _ := f.rooms.Room(id)
			req.Equal(final[i], room.Name)
		}
	}
}

func TestRoomRegistry_Concurrent_Sends_Share_One_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	roomID := f.createRoom(t, "general")
	alice, aliceConn := f.login(t, "alice")
	bob, bobConn := f.login(t, "bob")
	carol, carolConn := f.login(t, "carol")
	for _, s := range []*Session{alice, bob, carol} {
		_, err := f.rooms.JoinRoom(ctx, s, "general")
		req.NoError(err)
	}

	const perSender = 40
	var wg sync.WaitGroup
	errs := make(chan error, 2*perSender)
	for _, s := range []*Session{alice, bob} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perSender {
				if _, err := f.rooms.SendMessage(ctx, s, fmt.Sprintf("%s-%d", s.Username, i)); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	chat := func(conn *fakeConn) []string {
		var out []string
		for _, line := range conn.contents(t) {
			if !strings.HasPrefix(line, protocol.ServerSender+": ") {
				out = append(out, line)
			}
		}
		return out
	}
	aliceSeen := chat(aliceConn)
	req.Len(aliceSeen, 2*perSender)
	req.Equal(aliceSeen, chat(bobConn))
	req.Equal(aliceSeen, chat(carolConn))

	// And the stored history has the same order
	history, err := f.store.GetMessageHistory(ctx, roomID, 2*perSender)
	req.NoError(err)
	stored := make([]string, len(history))
	for i, m := range history {
		stored[i] = m.Username + ": " + m.Content
	}
	req.Equal(aliceSeen, stored)
}
