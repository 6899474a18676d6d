// Package errors holds the sentinel errors shared by every layer of the chat server.
// Callers wrap them with fmt.Errorf("%w: ...") and classify them with KindOf.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Wire
	ErrMalformedFrame = fmt.Errorf("malformed frame")
	ErrFrameTooLarge  = fmt.Errorf("frame too large")
	ErrUnknownCommand = fmt.Errorf("unknown command")
	ErrInvalidCommand = fmt.Errorf("invalid command")

	// Authentication
	ErrEmptyCredentials   = fmt.Errorf("username and password cannot be empty")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrAlreadyLoggedIn    = fmt.Errorf("user already has a live session")
	ErrInvalidToken       = fmt.Errorf("invalid session token")

	// Connection state
	ErrNotAuthenticated     = fmt.Errorf("not authenticated")
	ErrAlreadyAuthenticated = fmt.Errorf("already authenticated")
	ErrNotInRoom            = fmt.Errorf("not in a room")
	ErrEmptyMessage         = fmt.Errorf("message content cannot be empty")

	ErrRoomAlreadyExists = fmt.Errorf("room already exists")

	ErrRoomNotFound = fmt.Errorf("room not found")
	ErrUserNotFound = fmt.Errorf("user not found")

	ErrPersistence      = fmt.Errorf("persistence failure")
	ErrConnectionClosed = fmt.Errorf("connection closed")
)

// Kind is the failure class an error belongs to. It decides whether a connection
// survives the error and what the client is told.
type Kind int

const (
	KindInternal Kind = iota
	KindProtocol
	KindAuth
	KindState
	KindConflict
	KindNotFound
	KindPersistence
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindState:
		return "state"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case isAny(err, ErrMalformedFrame, ErrFrameTooLarge, ErrUnknownCommand, ErrInvalidCommand):
		return KindProtocol
	case isAny(err, ErrEmptyCredentials, ErrInvalidUsername, ErrInvalidCredentials,
		ErrUserAlreadyExists, ErrAlreadyLoggedIn, ErrInvalidToken):
		return KindAuth
	case isAny(err, ErrNotAuthenticated, ErrAlreadyAuthenticated, ErrNotInRoom, ErrEmptyMessage):
		return KindState
	case isAny(err, ErrRoomAlreadyExists):
		return KindConflict
	case isAny(err, ErrRoomNotFound, ErrUserNotFound):
		return KindNotFound
	case isAny(err, ErrPersistence):
		return KindPersistence
	case IsTransport(err):
		return KindTransport
	default:
		return KindInternal
	}
}

// IsTransport reports whether err means the peer is gone or the socket is unusable.
func IsTransport(err error) bool {
	if isAny(err, ErrConnectionClosed, io.EOF, io.ErrUnexpectedEOF, net.ErrClosed, os.ErrDeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr)
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
