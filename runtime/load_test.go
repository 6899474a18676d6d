package runtime

import (
	"chat-rooms/domain"
	"chat-rooms/mocks"
	"chat-rooms/protocol"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomRegistry_LoadTest(t *testing.T) {
	if testing.Short() {
		t.Skip("load test")
	}
	req := require.New(t)
	ctx := context.Background()

	// 1. Minimal setup, the store is mocked so the disk does not bound throughput
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIStore(ctrl)
	store.EXPECT().CreateRoom(gomock.Any(), "load", false, gomock.Any()).Return(domain.RoomID(1), nil)
	store.EXPECT().GetMessageHistory(gomock.Any(), domain.RoomID(1), gomock.Any()).Return(nil, nil).AnyTimes()
	store.EXPECT().UpdateUserActiveTime(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Do(func(_ context.Context, _ domain.Message) {
		time.Sleep(50 * time.Microsecond)
	}).Return(nil).AnyTimes()

	log := slog.New(slog.DiscardHandler)
	sessions := NewSessionRegistry()
	rooms := NewRoomRegistry(store, sessions, NewBroadcaster(log), log, 50)
	_, err := rooms.CreateRoom(ctx, "load", false, 1)
	req.NoError(err)

	// 2. Clients all in one room
	numClients := 50
	messagesPerClient := 40
	clients := make([]*Session, numClients)
	conns := make([]*fakeConn, numClients)
	for i := range numClients {
		conns[i] = &fakeConn{}
		clients[i] = NewSession(domain.User{ID: domain.UserID(i + 1), Username: fmt.Sprintf("user-%d", i)}, conns[i])
		req.NoError(sessions.Add(clients[i]))
		_, err := rooms.JoinRoom(ctx, clients[i], "load")
		req.NoError(err)
	}

	var successCount atomic.Uint64
	var failureCount atomic.Uint64
	start := time.Now()
	var wg sync.WaitGroup

	// 3. Traffic
	for _, session := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range messagesPerClient {
				if _, err := rooms.SendMessage(ctx, session, fmt.Sprintf("load message %d", j)); err != nil {
					failureCount.Add(1)
				} else {
					successCount.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	// 4. Results
	total := numClients * messagesPerClient
	req.Equal(uint64(total), successCount.Load())
	req.Zero(failureCount.Load())
	first := chatOnly(conns[0].contents(t))
	req.Len(first, total)
	for _, conn := range conns[1:] {
		req.Equal(first, chatOnly(conn.contents(t)))
	}
	t.Logf("%d messages fanned out to %d members in %v (%.0f msg/sec)",
		total, numClients, duration, float64(total)/duration.Seconds())
}

// chatOnly drops server notices, which differ per member by join time.
func chatOnly(contents []string) []string {
	out := make([]string, 0, len(contents))
	for _, c := range contents {
		if strings.HasPrefix(c, protocol.ServerSender+":") {
			continue
		}
		out = append(out, c)
	}
	return out
}
