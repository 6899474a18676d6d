package runtime

import (
	"chat-rooms/domain"
	"chat-rooms/protocol"
	"chat-rooms/repositories"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeConn records written frames. A broken fakeConn fails every write.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	broken bool
	closed bool
}

func (c *fakeConn) ReadFrame() ([]byte, error) { return nil, io.EOF }

func (c *fakeConn) WriteFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken || c.closed {
		return stderrors.New("broken pipe")
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "fake" }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) breakConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
}

// pushes decodes every chat_message written so far.
func (c *fakeConn) pushes(t *testing.T) []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Frame
	for _, raw := range c.frames {
		frame, err := protocol.DecodeFrame(raw)
		require.NoError(t, err)
		if frame.Type == protocol.TypeChatMessage {
			out = append(out, frame)
		}
	}
	return out
}

func (c *fakeConn) contents(t *testing.T) []string {
	var out []string
	for _, f := range c.pushes(t) {
		out = append(out, f.Sender+": "+f.Content)
	}
	return out
}

type fixture struct {
	store    *repositories.Store
	sessions *SessionRegistry
	rooms    *RoomRegistry
}

func newFixture(t *testing.T) *fixture {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	store, err := repositories.NewStore(db, log)
	req.NoError(err)
	t.Cleanup(func() {
		_ = store.Close()
		_ = db.Close()
	})
	sessions := NewSessionRegistry()
	return &fixture{
		store:    store,
		sessions: sessions,
		rooms:    NewRoomRegistry(store, sessions, NewBroadcaster(log), log, 50),
	}
}

// login creates a user and its live session.
func (f *fixture) login(t *testing.T, username string) (*Session, *fakeConn) {
	req := require.New(t)
	id, err := f.store.AddUser(context.Background(), username, "hash")
	req.NoError(err)
	conn := &fakeConn{}
	session := NewSession(domain.User{ID: id, Username: username}, conn)
	req.NoError(f.sessions.Add(session))
	return session, conn
}

func (f *fixture) createRoom(t *testing.T, name string) domain.RoomID {
	id, err := f.rooms.CreateRoom(context.Background(), name, false, 1)
	require.NoError(t, err)
	return id
}
