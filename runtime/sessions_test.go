package runtime

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_One_Session_Per_User(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	alice := domain.User{ID: 1, Username: "alice"}
	first := NewSession(alice, &fakeConn{})
	second := NewSession(alice, &fakeConn{})

	// Given alice is logged in
	req.NoError(registry.Add(first))

	// When she logs in again from another connection
	err := registry.Add(second)

	// Then the second session is rejected and the first one stays
	req.ErrorIs(err, errors.ErrAlreadyLoggedIn)
	got, ok := registry.Get(alice.ID)
	req.True(ok)
	req.Same(first, got)
	req.Equal(1, registry.Count())
}

func TestSessionRegistry_Remove_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	session := NewSession(domain.User{ID: 1, Username: "alice"}, &fakeConn{})
	stale := NewSession(domain.User{ID: 1, Username: "alice"}, &fakeConn{})
	req.NoError(registry.Add(session))

	// A session that is not the registered one is not removed
	req.False(registry.Remove(stale))
	req.Equal(1, registry.Count())

	req.True(registry.Remove(session))
	req.False(registry.Remove(session))
	req.Zero(registry.Count())
	req.Empty(registry.All())
}

func TestSession_Send_After_Close(t *testing.T) {
	req := require.New(t)
	conn := &fakeConn{}
	session := NewSession(domain.User{ID: 1, Username: "alice"}, conn)

	req.NoError(session.Send([]byte("{}\n")))
	req.NoError(session.Close())
	req.NoError(session.Close())

	req.ErrorIs(session.Send([]byte("{}\n")), errors.ErrConnectionClosed)
	req.True(conn.isClosed())
}
