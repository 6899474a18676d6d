// Package server runs the connection state machine behind every transport
// and the listeners that feed it.
package server

import (
	"chat-rooms/contract"
	"chat-rooms/errors"
	"chat-rooms/protocol"
	"chat-rooms/runtime"
	"chat-rooms/services"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	promptText       = "Enter command (register/login): "
	internalFailure  = "Server internal error."
	authOnlyFailure  = "Invalid command. Use 'register' or 'login'."
	notInRoomFailure = "You are not currently in a room."
)

const helpText = `
Available commands:
  register <username> <password> - Create a new account
  login <username> <password> - Log in to your account
  create_room <room_name> [private] - Create a new chat room (add 'private' for private room)
  join_room <room_name> - Join an existing chat room
  leave_room - Leave the current chat room
  send <message> - Send a message to the current room
  list_rooms - List all available chat rooms
  room_stats - View statistics for the current room (active users, total messages)
  leaderboard - View the message leaderboard
  search <text> - Search the messages of the current room
  logout - Disconnect from the server
  help - Show this help message
`

// Handler drives one connection from its first prompt to its cleanup.
type Handler struct {
	auth services.IAuthService
	chat services.IChatService
	log  *slog.Logger
}

func NewHandler(auth services.IAuthService, chat services.IChatService, log *slog.Logger) *Handler {
	return &Handler{auth: auth, chat: chat, log: log}
}

// connection is the per-connection state. session stays nil until login succeeds
// and never goes back to nil.
type connection struct {
	conn        contract.Conn
	session     *runtime.Session
	log         *slog.Logger
	cleanupOnce sync.Once
}

// write encodes v and sends it. Once authenticated, writes go through the session
// so replies never interleave with room broadcasts.
func (c *connection) write(v any) error {
	frame, err := protocol.Encode(v)
	if err != nil {
		c.log.Error("Unable to encode reply", "error", err)
		return nil
	}
	if c.session != nil {
		return c.session.Send(frame)
	}
	return c.conn.WriteFrame(frame)
}

// Serve blocks until the client logs out, disconnects, or ctx is cancelled.
// The session, if any, is removed from its room and from the registry exactly once.
func (h *Handler) Serve(ctx context.Context, conn contract.Conn) {
	c := &connection{conn: conn, log: h.log.With("remote", conn.RemoteAddr())}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer h.cleanup(c)

	c.log.Info("Connection opened")
	if !h.authenticate(ctx, c) {
		return
	}
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if h.rejectFrame(c, err) {
				continue
			}
			h.logEnd(c, err)
			return
		}
		cmd, err := protocol.Decode(frame)
		if err != nil {
			if err = c.write(protocol.Failure(describe(err))); err != nil {
				h.logEnd(c, err)
				return
			}
			continue
		}
		c.log.Debug("Command received", "command", cmd.Name(), "user_id", c.session.UserID)
		done, err := h.dispatch(ctx, c, cmd)
		if err != nil {
			h.logEnd(c, err)
			return
		}
		if done {
			return
		}
	}
}

// authenticate runs the Connected state. It reports false when the connection
// ended before a login succeeded.
func (h *Handler) authenticate(ctx context.Context, c *connection) bool {
	for c.session == nil {
		if err := c.write(protocol.Prompt(promptText)); err != nil {
			h.logEnd(c, err)
			return false
		}
		frame, err := c.conn.ReadFrame()
		if err != nil {
			if h.rejectFrame(c, err) {
				continue
			}
			h.logEnd(c, err)
			return false
		}

		var reply any
		cmd, err := protocol.Decode(frame)
		switch {
		case err != nil:
			reply = protocol.Failure(describe(err))
		default:
			reply = h.unauthenticated(ctx, c, cmd)
		}
		if err = c.write(reply); err != nil {
			h.logEnd(c, err)
			return false
		}
	}
	return true
}

// unauthenticated answers the commands accepted before login. A successful login
// sets c.session.
func (h *Handler) unauthenticated(ctx context.Context, c *connection, cmd protocol.Command) any {
	if !protocol.IsAuthentication(cmd) {
		return protocol.Failure(h.failure(c, fmt.Errorf("%w: %s", errors.ErrNotAuthenticated, cmd.Name())))
	}
	switch cmd := cmd.(type) {
	case protocol.Register:
		if _, err := h.auth.Register(ctx, cmd.Username, cmd.Password); err != nil {
			return protocol.Failure(h.authFailure(c, err))
		}
		return protocol.Success("Registration successful.")
	case protocol.Login:
		session, token, err := h.auth.Authenticate(ctx, cmd, c.conn)
		if err != nil {
			return protocol.Failure(h.authFailure(c, err))
		}
		c.session = session
		c.log = c.log.With("user_id", session.UserID)
		c.log.Info("User authenticated", "username", session.Username)
		return protocol.LoginResult{
			Result:   protocol.Success("Login successful."),
			UserID:   session.UserID,
			Username: session.Username,
			Token:    token,
		}
	default: // protocol.Help
		return protocol.Info(helpText)
	}
}

// dispatch runs one command of the Authenticated state. done is true after logout;
// err is set when the reply could not be written.
func (h *Handler) dispatch(ctx context.Context, c *connection, cmd protocol.Command) (done bool, err error) {
	var reply any
	switch cmd := cmd.(type) {
	case protocol.Register, protocol.Login:
		reply = protocol.Failure(h.failure(c, errors.ErrAlreadyAuthenticated))

	case protocol.Help:
		reply = protocol.Info(helpText)

	case protocol.CreateRoom:
		id, err := h.chat.CreateRoom(ctx, c.session, cmd.RoomName, cmd.IsPrivate)
		switch {
		case stderrors.Is(err, errors.ErrRoomAlreadyExists):
			reply = protocol.Failure(fmt.Sprintf("Failed to create room '%s'. It might already exist.", cmd.RoomName))
		case err != nil:
			reply = protocol.Failure(h.failure(c, err))
		default:
			reply = protocol.Success(fmt.Sprintf("Room '%s' created (ID: %d).", cmd.RoomName, id))
		}

	case protocol.JoinRoom:
		result, err := h.chat.JoinRoom(ctx, c.session, cmd.RoomName)
		switch {
		case stderrors.Is(err, errors.ErrRoomNotFound):
			reply = protocol.Failure(fmt.Sprintf("Room '%s' does not exist.", cmd.RoomName))
		case err != nil:
			reply = protocol.Failure(h.failure(c, err))
		default:
			reply = protocol.JoinResult{
				Result:            protocol.Success(fmt.Sprintf("Joined room '%s'.", result.Room.Name)),
				RoomID:            result.Room.ID,
				RoomName:          result.Room.Name,
				History:           protocol.ToHistory(result.History),
				RoomStats:         protocol.ToStats(result.Stats),
				ActiveUsersInRoom: result.ActiveUsers,
			}
		}

	case protocol.LeaveRoom:
		if room, ok := h.chat.LeaveRoom(c.session); ok {
			reply = protocol.Success(fmt.Sprintf("Left room '%s'.", room.Name))
		} else {
			reply = protocol.Failure(notInRoomFailure)
		}

	case protocol.SendMessage:
		err := h.chat.SendMessage(ctx, c.session, cmd.Message)
		switch {
		case stderrors.Is(err, errors.ErrNotInRoom):
			reply = protocol.Failure("You must join a room to send messages.")
		case err != nil:
			reply = protocol.Failure(h.failure(c, err))
		default:
			// the room echo is the acknowledgement
			return false, nil
		}

	case protocol.ListRooms:
		reply = protocol.RoomsResult{Result: protocol.Success(""), Rooms: protocol.ToRooms(h.chat.ListRooms())}

	case protocol.RoomStats:
		stats, members, err := h.chat.RoomStats(ctx, c.session)
		switch {
		case stderrors.Is(err, errors.ErrNotInRoom):
			reply = protocol.Failure("You must be in a room to view stats.")
		case err != nil:
			reply = protocol.Failure(h.failure(c, err))
		default:
			reply = protocol.StatsResult{Result: protocol.Success(""), RoomStats: protocol.ToStats(stats), ActiveUsers: members}
		}

	case protocol.Leaderboard:
		entries, err := h.chat.Leaderboard(ctx)
		if err != nil {
			reply = protocol.Failure(h.failure(c, err))
		} else {
			reply = protocol.LeaderboardResult{Result: protocol.Success(""), Leaderboard: protocol.ToLeaderboard(entries)}
		}

	case protocol.Search:
		messages, err := h.chat.Search(ctx, c.session, cmd.Query)
		switch {
		case stderrors.Is(err, errors.ErrNotInRoom):
			reply = protocol.Failure("You must join a room to search messages.")
		case err != nil:
			reply = protocol.Failure(h.failure(c, err))
		default:
			reply = protocol.SearchResult{Result: protocol.Success(""), Query: cmd.Query, Results: protocol.ToHistory(messages)}
		}

	case protocol.Logout:
		if err := c.write(protocol.Success("Logging out. Goodbye!")); err != nil {
			return true, err
		}
		c.log.Info("User logged out")
		return true, nil

	default:
		reply = protocol.Failure("Unknown command.")
	}
	return false, c.write(reply)
}

// rejectFrame answers an unusable frame and reports whether the connection survives.
func (h *Handler) rejectFrame(c *connection, err error) bool {
	var protocolErr *protocol.ProtocolError
	if !stderrors.As(err, &protocolErr) {
		return false
	}
	c.log.Debug("Frame rejected", "error", err)
	if err := c.write(protocol.Failure(describe(err))); err != nil {
		h.logEnd(c, err)
		return false
	}
	return true
}

func (h *Handler) authFailure(c *connection, err error) string {
	if errors.KindOf(err) == errors.KindAuth {
		c.log.Debug("Authentication refused", "error", err)
		return describe(err)
	}
	return h.failure(c, err)
}

// failure logs unexpected errors and returns the text shown to the client.
func (h *Handler) failure(c *connection, err error) string {
	switch errors.KindOf(err) {
	case errors.KindPersistence, errors.KindInternal:
		c.log.Error("Command failed", "kind", errors.KindOf(err), "error", err)
	default:
		c.log.Debug("Command refused", "kind", errors.KindOf(err), "error", err)
	}
	return describe(err)
}

// describe turns an error into the text shown to the client. Internal details
// never leave the server.
func describe(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrMalformedFrame):
		return "Invalid JSON format."
	case stderrors.Is(err, errors.ErrUnknownCommand):
		return "Unknown command."
	case stderrors.Is(err, errors.ErrFrameTooLarge):
		return "Frame too large."
	case stderrors.Is(err, errors.ErrInvalidCommand):
		var protocolErr *protocol.ProtocolError
		if stderrors.As(err, &protocolErr) {
			return capitalize(protocolErr.Err.Error()) + "."
		}
		return "Invalid command."
	case stderrors.Is(err, errors.ErrNotAuthenticated):
		return authOnlyFailure
	case stderrors.Is(err, errors.ErrAlreadyAuthenticated):
		return "You are already logged in."
	case stderrors.Is(err, errors.ErrEmptyCredentials):
		return "Username and password cannot be empty."
	case stderrors.Is(err, errors.ErrInvalidUsername):
		return "Invalid username."
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		return "Invalid username or password."
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		return "Username already exists."
	case stderrors.Is(err, errors.ErrAlreadyLoggedIn):
		return "User is already logged in elsewhere."
	case stderrors.Is(err, errors.ErrInvalidToken):
		return "Invalid or expired session token."
	case stderrors.Is(err, errors.ErrNotInRoom):
		return notInRoomFailure
	case stderrors.Is(err, errors.ErrEmptyMessage):
		return "Message content cannot be empty."
	case stderrors.Is(err, errors.ErrRoomNotFound):
		return "Room does not exist."
	case stderrors.Is(err, errors.ErrRoomAlreadyExists):
		return "Room already exists."
	default:
		return internalFailure
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (h *Handler) logEnd(c *connection, err error) {
	if errors.IsTransport(err) {
		c.log.Info("Connection ended", "reason", err)
		return
	}
	c.log.Warn("Connection dropped", "error", err)
}

func (h *Handler) cleanup(c *connection) {
	c.cleanupOnce.Do(func() {
		if c.session == nil {
			_ = c.conn.Close()
			c.log.Info("Connection closed")
			return
		}
		h.chat.Disconnect(c.session)
		_ = c.session.Close()
		c.log.Info("Connection closed")
	})
}
