// Package storetest is the behavioural suite every contract.IStore
// implementation must pass.
package storetest

import (
	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store owned by the test.
type Factory func(t *testing.T) contract.IStore

func Run(t *testing.T, newStore Factory) {
	t.Run("AddUser_And_GetUser", func(t *testing.T) { testAddUser(t, newStore(t)) })
	t.Run("AddUser_Duplicate", func(t *testing.T) { testDuplicateUser(t, newStore(t)) })
	t.Run("CreateRoom_And_Details", func(t *testing.T) { testCreateRoom(t, newStore(t)) })
	t.Run("CreateRoom_Concurrent_Same_Name", func(t *testing.T) { testConcurrentCreateRoom(t, newStore(t)) })
	t.Run("Message_History_Newest_Last_And_Bounded", func(t *testing.T) { testHistory(t, newStore(t)) })
	t.Run("Room_Stats_Count_Messages", func(t *testing.T) { testRoomStats(t, newStore(t)) })
	t.Run("Leaderboard_Order", func(t *testing.T) { testLeaderboard(t, newStore(t)) })
	t.Run("Not_Found", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func testAddUser(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()

	id, err := store.AddUser(ctx, "alice", "hash")
	req.NoError(err)
	req.NotZero(id)

	user, err := store.GetUser(ctx, "alice")
	req.NoError(err)
	req.Equal(id, user.ID)
	req.Equal("alice", user.Username)
	req.Equal("hash", user.PasswordHash)

	username, err := store.GetUsernameByID(ctx, id)
	req.NoError(err)
	req.Equal("alice", username)

	// Then a zeroed leaderboard row exists
	board, err := store.GetLeaderboard(ctx, 10)
	req.NoError(err)
	req.Len(board, 1)
	req.Equal("alice", board[0].Username)
	req.Zero(board[0].MessageCount)
}

func testDuplicateUser(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()

	_, err := store.AddUser(ctx, "alice", "hash")
	req.NoError(err)

	_, err = store.AddUser(ctx, "alice", "other")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	user, err := store.GetUser(ctx, "alice")
	req.NoError(err)
	req.Equal("hash", user.PasswordHash)
}

func testCreateRoom(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()
	owner, err := store.AddUser(ctx, "alice", "hash")
	req.NoError(err)

	general, err := store.CreateRoom(ctx, "general", false, owner)
	req.NoError(err)
	secret, err := store.CreateRoom(ctx, "secret", true, owner)
	req.NoError(err)
	req.NotEqual(general, secret)

	_, err = store.CreateRoom(ctx, "general", true, owner)
	req.ErrorIs(err, errors.ErrRoomAlreadyExists)

	details, err := store.GetRoomDetails(ctx, "secret")
	req.NoError(err)
	req.Equal(domain.RoomDetails{ID: secret, Name: "secret", IsPrivate: true}, details)

	rooms, err := store.GetAllRooms(ctx)
	req.NoError(err)
	req.Equal([]domain.RoomDetails{
		{ID: general, Name: "general"},
		{ID: secret, Name: "secret", IsPrivate: true},
	}, rooms)
}

func testConcurrentCreateRoom(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()
	owner, err := store.AddUser(ctx, "alice", "hash")
	req.NoError(err)

	// When many callers race to create the same room
	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = store.CreateRoom(ctx, "race", false, owner)
		}()
	}
	wg.Wait()

	// Then exactly one wins and every other sees a conflict
	winners := lo.CountBy(results, func(err error) bool { return err == nil })
	req.Equal(1, winners)
	for _, err := range results {
		if err != nil {
			req.ErrorIs(err, errors.ErrRoomAlreadyExists)
		}
	}
	rooms, err := store.GetAllRooms(ctx)
	req.NoError(err)
	req.Len(rooms, 1)
}

func testHistory(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()
	alice, err := store.AddUser(ctx, "alice", "hash")
	req.NoError(err)
	room, err := store.CreateRoom(ctx, "general", false, alice)
	req.NoError(err)
	other, err := store.CreateRoom(ctx, "other", false, alice)
	req.NoError(err)

	// Microsecond digits are the finest precision every store keeps
	start := time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC)
	for i := range 5 {
		req.NoError(store.SaveMessage(ctx, domain.Message{
			ID: uuid.New(), RoomID: room, UserID: alice, Username: "alice",
			Content: fmt.Sprintf("m%d", i), At: start.Add(time.Duration(i) * time.Second),
		}))
	}
	req.NoError(store.SaveMessage(ctx, domain.Message{
		ID: uuid.New(), RoomID: other, UserID: alice, Username: "alice", Content: "elsewhere", At: start,
	}))

	// When fetching a bounded history
	history, err := store.GetMessageHistory(ctx, room, 3)
	req.NoError(err)

	// Then the newest messages come back oldest first
	req.Equal([]string{"m2", "m3", "m4"}, lo.Map(history, func(m domain.Message, _ int) string { return m.Content }))
	req.Equal("alice", history[0].Username)
	req.Equal(room, history[0].RoomID)
	req.True(history[2].At.Equal(start.Add(4 * time.Second)))
	req.Equal(123456000, history[2].At.Nanosecond())

	// A non-positive limit means the whole history
	all, err := store.GetMessageHistory(ctx, room, 0)
	req.NoError(err)
	req.Len(all, 5)

	empty, err := store.GetMessageHistory(ctx, domain.RoomID(999), 3)
	req.NoError(err)
	req.Empty(empty)
}

func testRoomStats(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()
	alice, err := store.AddUser(ctx, "alice", "hash")
	req.NoError(err)
	room, err := store.CreateRoom(ctx, "general", false, alice)
	req.NoError(err)

	count, err := store.GetRoomStats(ctx, room)
	req.NoError(err)
	req.Zero(count)

	for range 3 {
		req.NoError(store.SaveMessage(ctx, domain.Message{ID: uuid.New(), RoomID: room, UserID: alice, Username: "alice", Content: "x", At: time.Now()}))
	}
	count, err = store.GetRoomStats(ctx, room)
	req.NoError(err)
	req.Equal(3, count)
}

func testLeaderboard(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := map[string]domain.UserID{}
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		id, err := store.AddUser(ctx, name, "hash")
		req.NoError(err)
		ids[name] = id
	}
	room, err := store.CreateRoom(ctx, "general", false, ids["alice"])
	req.NoError(err)

	send := func(name string, n int, last time.Time) {
		for i := range n {
			req.NoError(store.SaveMessage(ctx, domain.Message{
				ID: uuid.New(), RoomID: room, UserID: ids[name], Username: name, Content: "x",
				At: last.Add(-time.Duration(n-1-i) * time.Millisecond),
			}))
		}
		req.NoError(store.UpdateUserActiveTime(ctx, ids[name], last))
	}
	// Given bob and carol tie on count, carol being more recent
	send("alice", 1, at)
	send("bob", 3, at.Add(time.Minute))
	send("carol", 3, at.Add(2*time.Minute))
	req.NoError(store.UpdateUserActiveTime(ctx, ids["dave"], at.Add(-time.Hour)))

	board, err := store.GetLeaderboard(ctx, 3)
	req.NoError(err)

	req.Equal([]string{"carol", "bob", "alice"}, lo.Map(board, func(e domain.LeaderboardEntry, _ int) string { return e.Username }))
	req.Equal(3, board[0].MessageCount)
	req.True(board[0].LastActive.Equal(at.Add(2 * time.Minute)))

	everyone, err := store.GetLeaderboard(ctx, 0)
	req.NoError(err)
	req.Len(everyone, 4)
}

func testNotFound(t *testing.T, store contract.IStore) {
	req := require.New(t)
	ctx := context.Background()

	_, err := store.GetUser(ctx, "ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = store.GetUsernameByID(ctx, domain.UserID(404))
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = store.GetRoomDetails(ctx, "nowhere")
	req.ErrorIs(err, errors.ErrRoomNotFound)

	err = store.UpdateUserActiveTime(ctx, domain.UserID(404), time.Now())
	req.ErrorIs(err, errors.ErrUserNotFound)
}
