// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
type Message struct {
	ID       uuid.UUID // unique identifier
	RoomID   RoomID
	UserID   UserID
	Username string
	Content  string
	At       time.Time
}

// Verdict is the outcome of running a message through moderation.
type Verdict struct {
	Content       string
	CensoredWords []string
	Lang          string
}
