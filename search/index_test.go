package search

import (
	"chat-rooms/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestIndex_Search_Within_Room_Newest_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index, err := Open(t.TempDir(), logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	defer index.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		{ID: uuid.New(), RoomID: 1, UserID: 7, Username: "alice", Content: "the Badger database is fast", At: at},
		{ID: uuid.New(), RoomID: 1, UserID: 8, Username: "bob", Content: "unrelated chatter", At: at.Add(time.Second)},
		{ID: uuid.New(), RoomID: 1, UserID: 8, Username: "bob", Content: "which database do you use?", At: at.Add(2 * time.Second)},
		{ID: uuid.New(), RoomID: 2, UserID: 7, Username: "alice", Content: "database in another room", At: at.Add(3 * time.Second)},
	}
	for _, m := range messages {
		req.NoError(index.Index(ctx, m))
	}

	// When searching room 1 for a word in two of its messages
	results, err := index.Search(ctx, 1, "DATABASE", 10)
	req.NoError(err)

	// Then only room 1 matches come back, newest first, with their stored fields
	req.Len(results, 2)
	for i, want := range []domain.Message{messages[2], messages[0]} {
		req.Equal(want.ID, results[i].ID)
		req.Equal(want.UserID, results[i].UserID)
		req.Equal(want.Username, results[i].Username)
		req.Equal(want.Content, results[i].Content)
		req.True(want.At.Equal(results[i].At))
	}
}

func TestIndex_Search_Limit_And_No_Match(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index, err := Open("", logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	defer index.Close()

	for i := range 5 {
		req.NoError(index.Index(ctx, domain.Message{
			ID: uuid.New(), RoomID: 1, UserID: 1, Username: "alice", Content: "hello there",
			At: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	results, err := index.Search(ctx, 1, "hello", 3)
	req.NoError(err)
	req.Len(results, 3)
	req.True(lo.EveryBy(results, func(m domain.Message) bool { return m.Content == "hello there" }))

	results, err = index.Search(ctx, 1, "goodbye", 3)
	req.NoError(err)
	req.Empty(results)
}
